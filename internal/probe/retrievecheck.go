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

// retrieveCheck issues one semantic-search query. The success criterion
// is the presence of the "records" field in the response, not any
// particular value inside it.
type retrieveCheck struct {
	base
}

func (r *retrieveCheck) Execute(ctx context.Context, cycle Cycle) []domain.CheckResult {
	if cycle.DependencyFailed {
		return r.failFast(cycle.Now)
	}

	p := r.def.Params
	query := p.Query
	if query == "" {
		query = "test"
	}

	reqBody, _ := json.Marshal(map[string]any{
		"query": query,
		"retrieval_model": map[string]any{
			"search_method":           "semantic_search",
			"reranking_enable":        false,
			"top_k":                   1,
			"score_threshold_enabled": false,
		},
	})

	rctx, cancel := r.requestCtx(ctx)
	defer cancel()

	url := fmt.Sprintf("%s/datasets/%s/retrieve", trimSlash(p.BaseURL), r.datasetID())
	req, err := http.NewRequestWithContext(rctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return []domain.CheckResult{r.result(cycle.Now, domain.StatusDown, domain.NotMeasured, err.Error())}
	}
	r.authHeaders(req)

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return []domain.CheckResult{r.result(cycle.Now, domain.StatusDown, domain.NotMeasured, transportMsg(err))}
	}
	defer resp.Body.Close()
	ms := elapsedMS(start)

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("HTTP %d (expected 200)", resp.StatusCode)
		return []domain.CheckResult{r.result(cycle.Now, domain.StatusDown, ms, msg)}
	}

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return []domain.CheckResult{r.result(cycle.Now, domain.StatusDown, ms, "unparseable response body")}
	}
	records, ok := payload["records"]
	if !ok {
		return []domain.CheckResult{r.result(cycle.Now, domain.StatusDown, ms, "response missing 'records' field")}
	}

	var list []json.RawMessage
	_ = json.Unmarshal(records, &list)
	msg := fmt.Sprintf("HTTP 200, %d record(s) returned", len(list))
	return []domain.CheckResult{r.result(cycle.Now, domain.StatusUp, ms, msg)}
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
