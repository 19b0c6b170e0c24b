package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mhemmati/statuswatch/internal/domain"
)

// webhookCheck triggers a workflow over a webhook and, on the next
// invocation, looks the run up in the workflow logs by the trigger id
// it generated. The trigger id is the claim token.
type webhookCheck struct {
	base
}

func newTriggerID() string {
	return "status-check-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func (w *webhookCheck) triggerURL() string {
	token := os.Getenv(w.def.Params.TriggerTokenEnv)
	return trimSlash(w.def.Params.TriggerURL) + "/" + token
}

func (w *webhookCheck) start(ctx context.Context, cycle Cycle) domain.CheckResult {
	triggerID := newTriggerID()
	body, _ := json.Marshal(map[string]any{
		"id":        triggerID,
		"timestamp": cycle.Now.Unix(),
	})

	rctx, cancel := w.requestCtx(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, http.MethodPost, w.triggerURL(), bytes.NewReader(body))
	if err != nil {
		return w.result(cycle.Now, domain.StatusDown, domain.NotMeasured, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	startAt := time.Now()
	resp, err := w.client.Do(req)
	if err != nil {
		return w.result(cycle.Now, domain.StatusDown, domain.NotMeasured, "trigger: "+transportMsg(err))
	}
	defer resp.Body.Close()
	ms := elapsedMS(startAt)

	if resp.StatusCode != http.StatusOK {
		return w.result(cycle.Now, domain.StatusDown, ms, fmt.Sprintf("trigger failed: HTTP %d", resp.StatusCode))
	}

	res := w.result(cycle.Now, domain.StatusUp, ms, "webhook triggered, processing pending")
	res.CyclePhase = domain.PhaseStart
	res.PendingToken = triggerID
	deadline := cycle.Now.UTC().Truncate(time.Second).Add(w.pendingWindow())
	res.Deadline = &deadline
	return res
}

func (w *webhookCheck) verify(ctx context.Context, entry domain.PendingEntry, cycle Cycle) (domain.CheckResult, bool) {
	rctx, cancel := w.requestCtx(ctx)
	defer cancel()

	url := fmt.Sprintf("%s/workflows/logs?keyword=%s&limit=1", trimSlash(w.def.Params.BaseURL), entry.Token)
	req, err := http.NewRequestWithContext(rctx, http.MethodGet, url, nil)
	if err != nil {
		return w.verifyResult(cycle, entry, domain.StatusDown, domain.NotMeasured, err.Error()), true
	}
	w.authHeaders(req)

	resp, err := w.client.Do(req)
	if err != nil {
		return w.verifyResult(cycle, entry, domain.StatusDown, domain.NotMeasured,
			"workflow logs: "+transportMsg(err)), true
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return w.verifyResult(cycle, entry, domain.StatusDown, domain.NotMeasured,
			fmt.Sprintf("workflow logs: HTTP %d", resp.StatusCode)), true
	}

	var payload struct {
		Data []struct {
			WorkflowRun struct {
				Status      string  `json:"status"`
				ElapsedTime float64 `json:"elapsed_time"`
				Error       string  `json:"error"`
			} `json:"workflow_run"`
		} `json:"data"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return w.verifyResult(cycle, entry, domain.StatusDown, domain.NotMeasured,
			"workflow logs: unparseable response"), true
	}
	if len(payload.Data) == 0 {
		// trigger not visible in the logs yet
		return domain.CheckResult{}, false
	}

	run := payload.Data[0].WorkflowRun
	switch run.Status {
	case "succeeded":
		ms := int(run.ElapsedTime * 1000)
		msg := fmt.Sprintf("webhook processed in %.1fs", run.ElapsedTime)
		return w.verifyResult(cycle, entry, domain.StatusUp, ms, msg), true
	case "failed":
		msg := run.Error
		if msg == "" {
			msg = "unknown error"
		}
		return w.verifyResult(cycle, entry, domain.StatusDown, domain.NotMeasured, "workflow failed: "+msg), true
	default:
		// queued or still running
		return domain.CheckResult{}, false
	}
}

func (w *webhookCheck) verifyResult(cycle Cycle, entry domain.PendingEntry, st domain.Status, ms int, msg string) domain.CheckResult {
	res := w.result(cycle.Now, st, ms, msg)
	res.CyclePhase = domain.PhaseVerify
	res.PendingToken = entry.Token
	return res
}
