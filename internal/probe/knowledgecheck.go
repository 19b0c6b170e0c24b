package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mhemmati/statuswatch/internal/domain"
)

// knowledgeCheck exercises the document-indexing pipeline end to end:
// the start phase uploads a tiny document, the verify phase (next
// invocation) polls its indexing status. The batch id doubles as the
// claim token; the document id rides along as the ref for cleanup.
type knowledgeCheck struct {
	base
}

func (k *knowledgeCheck) start(ctx context.Context, cycle Cycle) domain.CheckResult {
	p := k.def.Params
	docName := "status-check-" + cycle.Now.UTC().Format("20060102-150405")
	body, _ := json.Marshal(map[string]any{
		"name":               docName,
		"text":               "ping",
		"indexing_technique": "economy",
		"process_rule":       map[string]any{"mode": "automatic"},
	})

	rctx, cancel := k.requestCtx(ctx)
	defer cancel()

	url := fmt.Sprintf("%s/datasets/%s/document/create-by-text", trimSlash(p.BaseURL), k.datasetID())
	req, err := http.NewRequestWithContext(rctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return k.result(cycle.Now, domain.StatusDown, domain.NotMeasured, err.Error())
	}
	k.authHeaders(req)

	startAt := time.Now()
	resp, err := k.client.Do(req)
	if err != nil {
		return k.result(cycle.Now, domain.StatusDown, domain.NotMeasured, "upload: "+transportMsg(err))
	}
	defer resp.Body.Close()
	ms := elapsedMS(startAt)

	if resp.StatusCode != http.StatusOK {
		return k.result(cycle.Now, domain.StatusDown, ms, fmt.Sprintf("upload failed: HTTP %d", resp.StatusCode))
	}

	var payload struct {
		Document struct {
			ID string `json:"id"`
		} `json:"document"`
		Batch string `json:"batch"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return k.result(cycle.Now, domain.StatusDown, ms, "upload: unparseable response")
	}
	if payload.Document.ID == "" || payload.Batch == "" {
		return k.result(cycle.Now, domain.StatusDown, ms, "upload: missing document or batch id")
	}

	res := k.result(cycle.Now, domain.StatusUp, ms, "document uploaded, indexing pending")
	res.CyclePhase = domain.PhaseStart
	res.PendingToken = payload.Batch
	res.PendingRef = payload.Document.ID
	deadline := cycle.Now.UTC().Truncate(time.Second).Add(k.pendingWindow())
	res.Deadline = &deadline
	return res
}

func (k *knowledgeCheck) verify(ctx context.Context, entry domain.PendingEntry, cycle Cycle) (domain.CheckResult, bool) {
	p := k.def.Params

	rctx, cancel := k.requestCtx(ctx)
	defer cancel()

	url := fmt.Sprintf("%s/datasets/%s/documents/%s/indexing-status",
		trimSlash(p.BaseURL), k.datasetID(), entry.Token)
	req, err := http.NewRequestWithContext(rctx, http.MethodGet, url, nil)
	if err != nil {
		return k.verifyResult(cycle, entry, domain.StatusDown, domain.NotMeasured, err.Error()), true
	}
	k.authHeaders(req)

	resp, err := k.client.Do(req)
	if err != nil {
		return k.verifyResult(cycle, entry, domain.StatusDown, domain.NotMeasured,
			"indexing status: "+transportMsg(err)), true
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		k.deleteDocument(ctx, entry.Ref)
		return k.verifyResult(cycle, entry, domain.StatusDown, domain.NotMeasured,
			fmt.Sprintf("indexing status: HTTP %d", resp.StatusCode)), true
	}

	var payload struct {
		Data []struct {
			IndexingStatus string `json:"indexing_status"`
			Error          string `json:"error"`
		} `json:"data"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil || len(payload.Data) == 0 {
		k.deleteDocument(ctx, entry.Ref)
		return k.verifyResult(cycle, entry, domain.StatusDown, domain.NotMeasured,
			"indexing status: empty response"), true
	}

	switch payload.Data[0].IndexingStatus {
	case "completed":
		k.deleteDocument(ctx, entry.Ref)
		// Elapsed between the start action and the observed completion.
		ms := int(cycle.Now.Sub(entry.CreatedAt).Milliseconds())
		msg := fmt.Sprintf("indexing completed in %.1fs", float64(ms)/1000)
		return k.verifyResult(cycle, entry, domain.StatusUp, ms, msg), true
	case "error":
		k.deleteDocument(ctx, entry.Ref)
		msg := payload.Data[0].Error
		if msg == "" {
			msg = "unknown error"
		}
		return k.verifyResult(cycle, entry, domain.StatusDown, domain.NotMeasured, "indexing failed: "+msg), true
	default:
		// still indexing; the driver decides between waiting and expiry
		return domain.CheckResult{}, false
	}
}

func (k *knowledgeCheck) verifyResult(cycle Cycle, entry domain.PendingEntry, st domain.Status, ms int, msg string) domain.CheckResult {
	res := k.result(cycle.Now, st, ms, msg)
	res.CyclePhase = domain.PhaseVerify
	res.PendingToken = entry.Token
	return res
}

// deleteDocument is best-effort cleanup so the probe dataset does not
// accumulate ping documents.
func (k *knowledgeCheck) deleteDocument(ctx context.Context, documentID string) {
	if documentID == "" {
		return
	}
	rctx, cancel := k.requestCtx(ctx)
	defer cancel()

	url := fmt.Sprintf("%s/datasets/%s/documents/%s",
		trimSlash(k.def.Params.BaseURL), k.datasetID(), documentID)
	req, err := http.NewRequestWithContext(rctx, http.MethodDelete, url, nil)
	if err != nil {
		return
	}
	k.authHeaders(req)
	if resp, err := k.client.Do(req); err == nil {
		resp.Body.Close()
	}
}
