package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mhemmati/statuswatch/internal/domain"
)

// httpCheck probes a plain endpoint: one request, one sample.
type httpCheck struct {
	base
}

// pingPayload is the fixed body sent to chat-style POST endpoints so an
// authenticated probe exercises the full request path.
var pingPayload = map[string]any{
	"inputs":             map[string]any{},
	"query":              "ping",
	"response_mode":      "blocking",
	"user":               "status-checker",
	"auto_generate_name": false,
}

func (h *httpCheck) Execute(ctx context.Context, cycle Cycle) []domain.CheckResult {
	if cycle.DependencyFailed {
		return h.failFast(cycle.Now)
	}

	p := h.def.Params
	method := strings.ToUpper(p.Method)
	if method == "" {
		method = http.MethodGet
	}
	expected := p.ExpectedStatus
	if expected == 0 {
		expected = http.StatusOK
	}

	rctx, cancel := h.requestCtx(ctx)
	defer cancel()

	var body io.Reader
	if method == http.MethodPost && p.APIKeyEnv != "" {
		b, _ := json.Marshal(pingPayload)
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(rctx, method, p.URL, body)
	if err != nil {
		return []domain.CheckResult{h.result(cycle.Now, domain.StatusDown, domain.NotMeasured, err.Error())}
	}
	if p.APIKeyEnv != "" {
		h.authHeaders(req)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return []domain.CheckResult{h.result(cycle.Now, domain.StatusDown, domain.NotMeasured, transportMsg(err))}
	}
	defer resp.Body.Close()
	ms := elapsedMS(start)

	if resp.StatusCode == expected {
		if p.ExpectedBody != "" {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if !strings.Contains(string(b), p.ExpectedBody) {
				msg := fmt.Sprintf("HTTP %d, body missing %q", resp.StatusCode, p.ExpectedBody)
				return []domain.CheckResult{h.result(cycle.Now, domain.StatusDown, ms, msg)}
			}
			msg := fmt.Sprintf("HTTP %d, body contains %q", resp.StatusCode, p.ExpectedBody)
			return []domain.CheckResult{h.result(cycle.Now, domain.StatusUp, ms, msg)}
		}
		return []domain.CheckResult{h.result(cycle.Now, domain.StatusUp, ms, fmt.Sprintf("HTTP %d", resp.StatusCode))}
	}

	// Auth/input rejections still prove the server is answering.
	if p.ExpectedBody == "" && (resp.StatusCode == http.StatusBadRequest ||
		resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
		msg := fmt.Sprintf("HTTP %d (auth/input error, server is responding)", resp.StatusCode)
		return []domain.CheckResult{h.result(cycle.Now, domain.StatusUp, ms, msg)}
	}

	msg := fmt.Sprintf("HTTP %d (expected %d)", resp.StatusCode, expected)
	return []domain.CheckResult{h.result(cycle.Now, domain.StatusDown, ms, msg)}
}

func transportMsg(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return err.Error()
}
