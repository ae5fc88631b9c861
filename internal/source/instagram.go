package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/pauljones0/artist-push-bot/internal/models"
	"github.com/pauljones0/artist-push-bot/internal/util"
)

const (
	instagramBaseURL = "https://www.instagram.com"
	maxPostsPerFetch = 12
	userAgent        = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// InstagramClient fetches account snapshots from Instagram's public profile
// endpoints. Three endpoint shapes are tried in order within the one
// strategy: the web_profile_info JSON API, the legacy ?__a=1 JSON view, and
// the profile HTML page (parsed for its ld+json block). Requests are rate
// limited so a large registry doesn't hammer the upstream.
type InstagramClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

func NewInstagram(timeout time.Duration) *InstagramClient {
	return &InstagramClient{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(1), 3),
		baseURL:    instagramBaseURL,
	}
}

func (c *InstagramClient) FetchAccount(ctx context.Context, accountID string) (*models.AccountSnapshot, error) {
	var snap *models.AccountSnapshot
	err := util.RetryWithBackoff(ctx, 1, func(attempt int) error {
		if attempt > 0 {
			slog.Info("Retrying profile fetch", "account", accountID, "attempt", attempt+1)
		}
		var attemptErr error
		snap, attemptErr = c.fetchOnce(ctx, accountID)
		return attemptErr
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (c *InstagramClient) fetchOnce(ctx context.Context, accountID string) (*models.AccountSnapshot, error) {
	endpoints := []struct {
		url   string
		parse func(accountID string, body []byte) (*models.AccountSnapshot, error)
	}{
		{c.baseURL + "/api/v1/users/web_profile_info/?username=" + accountID, parseWebProfileInfo},
		{c.baseURL + "/" + accountID + "/?__a=1&__d=dis", parseLegacyProfile},
		{c.baseURL + "/" + accountID + "/", parseProfileHTML},
	}

	var lastErr error
	for _, ep := range endpoints {
		body, err := c.get(ctx, ep.url)
		if err != nil {
			lastErr = err
			continue
		}
		snap, err := ep.parse(accountID, body)
		if err != nil {
			lastErr = err
			continue
		}
		return snap, nil
	}
	return nil, fmt.Errorf("all profile endpoints failed for %s: %w", accountID, lastErr)
}

func (c *InstagramClient) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/html, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", instagramBaseURL+"/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	// Profile payloads are at most a few hundred KB; cap reads at 4MB.
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}

// graphUser is the profile object shared by the JSON endpoints.
type graphUser struct {
	FullName        string `json:"full_name"`
	ProfilePicURL   string `json:"profile_pic_url"`
	ProfilePicURLHD string `json:"profile_pic_url_hd"`
	Timeline        struct {
		Edges []struct {
			Node graphNode `json:"node"`
		} `json:"edges"`
	} `json:"edge_owner_to_timeline_media"`
}

type graphNode struct {
	ID         string `json:"id"`
	TypeName   string `json:"__typename"`
	Shortcode  string `json:"shortcode"`
	IsVideo    bool   `json:"is_video"`
	DisplayURL string `json:"display_url"`
	VideoURL   string `json:"video_url"`
	TakenAt    int64  `json:"taken_at_timestamp"`
	Captions   struct {
		Edges []struct {
			Node struct {
				Text string `json:"text"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"edge_media_to_caption"`
}

func parseWebProfileInfo(accountID string, body []byte) (*models.AccountSnapshot, error) {
	var payload struct {
		Data struct {
			User *graphUser `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("malformed web_profile_info payload: %w", err)
	}
	if payload.Data.User == nil {
		return nil, ErrNoData
	}
	return snapshotFromUser(accountID, payload.Data.User), nil
}

func parseLegacyProfile(accountID string, body []byte) (*models.AccountSnapshot, error) {
	var payload struct {
		Graphql struct {
			User *graphUser `json:"user"`
		} `json:"graphql"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("malformed __a=1 payload: %w", err)
	}
	if payload.Graphql.User == nil {
		return nil, ErrNoData
	}
	return snapshotFromUser(accountID, payload.Graphql.User), nil
}

// parseProfileHTML extracts what it can from the server-rendered profile
// page. The ld+json block carries the display name and avatar; recent posts
// are only present when Instagram inlines the profile JSON into the page.
func parseProfileHTML(accountID string, body []byte) (*models.AccountSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse profile HTML: %w", err)
	}

	// Some page variants inline the web_profile_info response verbatim.
	var inlined *models.AccountSnapshot
	doc.Find("script[type='application/json']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		idx := strings.Index(text, `"edge_owner_to_timeline_media"`)
		if idx == -1 {
			return true
		}
		if snap, perr := parseWebProfileInfo(accountID, []byte(extractUserJSON(text))); perr == nil {
			inlined = snap
			return false
		}
		return true
	})
	if inlined != nil {
		return inlined, nil
	}

	var profile struct {
		Type  string `json:"@type"`
		Name  string `json:"name"`
		Image string `json:"image"`
	}
	found := false
	doc.Find("script[type='application/ld+json']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if err := json.Unmarshal([]byte(s.Text()), &profile); err == nil && profile.Name != "" {
			found = true
			return false
		}
		return true
	})
	if !found {
		return nil, ErrNoData
	}

	return &models.AccountSnapshot{
		AccountID:   accountID,
		DisplayName: profile.Name,
		AvatarRef:   profile.Image,
	}, nil
}

// extractUserJSON pulls the {"data":{"user":...}} object out of an inline
// script by brace matching from the nearest enclosing "data" key.
func extractUserJSON(text string) string {
	start := strings.Index(text, `{"data":{"user"`)
	if start == -1 {
		return text
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return text[start:]
}

func snapshotFromUser(accountID string, user *graphUser) *models.AccountSnapshot {
	snap := &models.AccountSnapshot{
		AccountID:   accountID,
		DisplayName: user.FullName,
		AvatarRef:   user.ProfilePicURL,
	}
	if snap.DisplayName == "" {
		snap.DisplayName = TitleCase(accountID)
	}
	if snap.AvatarRef == "" {
		snap.AvatarRef = user.ProfilePicURLHD
	}
	if snap.AvatarRef == "" {
		snap.AvatarRef = DefaultAvatarRef(accountID)
	}

	for i, edge := range user.Timeline.Edges {
		if i >= maxPostsPerFetch {
			break
		}
		node := edge.Node

		post := models.Post{
			ID:        node.ID,
			AccountID: accountID,
			Kind:      kindOf(node),
			MediaRef:  node.DisplayURL,
			Permalink: fmt.Sprintf("%s/p/%s/", instagramBaseURL, node.Shortcode),
		}
		if post.ID == "" {
			post.ID = node.Shortcode
		}
		if node.IsVideo && node.VideoURL != "" {
			post.MediaRef = node.VideoURL
		}
		if len(node.Captions.Edges) > 0 {
			post.Caption = node.Captions.Edges[0].Node.Text
		}
		if node.TakenAt > 0 {
			post.Timestamp = time.Unix(node.TakenAt, 0).UTC()
		}
		snap.Posts = append(snap.Posts, post)
	}
	return snap
}

func kindOf(node graphNode) models.PostKind {
	switch {
	case node.TypeName == "GraphSidecar":
		return models.KindCarousel
	case node.IsVideo:
		return models.KindVideo
	default:
		return models.KindImage
	}
}

// TitleCase uppercases the first rune, matching the display-name fallback
// the feed has always shown for accounts without a full name.
func TitleCase(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// DefaultAvatarRef is the generated placeholder avatar for an account.
func DefaultAvatarRef(accountID string) string {
	return "https://api.dicebear.com/7.x/avataaars/svg?seed=" + accountID
}
