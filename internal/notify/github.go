package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mhemmati/statuswatch/internal/domain"
)

// GitHub posts transition events as comments on a pinned tracking
// issue, giving subscribers of that issue push notifications for free.
type GitHub struct {
	Repo        string // "owner/name"
	IssueNumber int
	Token       string
	Client      *http.Client

	// BaseURL is overridable for tests; defaults to the public API.
	BaseURL string
}

func NewGitHub(repo string, issueNumber int, token string) *GitHub {
	if repo == "" || issueNumber <= 0 || token == "" {
		return nil
	}
	return &GitHub{
		Repo:        repo,
		IssueNumber: issueNumber,
		Token:       token,
		Client:      &http.Client{Timeout: 10 * time.Second},
		BaseURL:     "https://api.github.com",
	}
}

func (g *GitHub) Send(ctx context.Context, ev domain.TransitionEvent) error {
	if g == nil {
		return fmt.Errorf("github disabled")
	}
	title, text := render(ev)
	body, _ := json.Marshal(map[string]string{
		"body": fmt.Sprintf("## %s\n\n%s\n\n<!-- %s -->", title, text, ev.DedupKey),
	})

	url := fmt.Sprintf("%s/repos/%s/issues/%d/comments", g.BaseURL, g.Repo, g.IssueNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("github comment: HTTP %d", resp.StatusCode)
	}
	return nil
}
