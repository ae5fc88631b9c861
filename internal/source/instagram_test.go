package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/pauljones0/artist-push-bot/internal/models"
)

func testClient(baseURL string) *InstagramClient {
	c := NewInstagram(5 * time.Second)
	c.baseURL = baseURL
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	return c
}

const webProfilePayload = `{
	"data": {
		"user": {
			"full_name": "Nike",
			"profile_pic_url": "https://cdn.example.com/nike.jpg",
			"edge_owner_to_timeline_media": {
				"edges": [
					{"node": {
						"id": "101",
						"__typename": "GraphImage",
						"shortcode": "abc",
						"display_url": "https://cdn.example.com/101.jpg",
						"taken_at_timestamp": 1717243200,
						"edge_media_to_caption": {"edges": [{"node": {"text": "Just do it"}}]}
					}},
					{"node": {
						"id": "102",
						"__typename": "GraphVideo",
						"shortcode": "def",
						"is_video": true,
						"display_url": "https://cdn.example.com/102.jpg",
						"video_url": "https://cdn.example.com/102.mp4",
						"taken_at_timestamp": 1717239600
					}},
					{"node": {
						"id": "103",
						"__typename": "GraphSidecar",
						"shortcode": "ghi",
						"display_url": "https://cdn.example.com/103.jpg",
						"taken_at_timestamp": 1717236000
					}}
				]
			}
		}
	}
}`

func TestFetchAccount_WebProfileInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/users/web_profile_info/" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("username"); got != "nike" {
			t.Errorf("username query = %q, want %q", got, "nike")
		}
		if ua := r.Header.Get("User-Agent"); ua == "" || ua == "Go-http-client/1.1" {
			t.Errorf("Expected browser User-Agent, got %q", ua)
		}
		fmt.Fprint(w, webProfilePayload)
	}))
	defer srv.Close()

	snap, err := testClient(srv.URL).FetchAccount(context.Background(), "nike")
	if err != nil {
		t.Fatalf("FetchAccount() error = %v", err)
	}

	if snap.DisplayName != "Nike" {
		t.Errorf("DisplayName = %q, want %q", snap.DisplayName, "Nike")
	}
	if len(snap.Posts) != 3 {
		t.Fatalf("Expected 3 posts, got %d", len(snap.Posts))
	}

	image := snap.Posts[0]
	if image.Kind != models.KindImage || image.Caption != "Just do it" {
		t.Errorf("Unexpected image post: %+v", image)
	}
	if image.Permalink != "https://www.instagram.com/p/abc/" {
		t.Errorf("Permalink = %q", image.Permalink)
	}
	if image.Timestamp.IsZero() {
		t.Error("Expected timestamp from taken_at_timestamp")
	}

	video := snap.Posts[1]
	if video.Kind != models.KindVideo {
		t.Errorf("Expected video kind, got %q", video.Kind)
	}
	if video.MediaRef != "https://cdn.example.com/102.mp4" {
		t.Errorf("Expected video URL preferred for media ref, got %q", video.MediaRef)
	}

	if snap.Posts[2].Kind != models.KindCarousel {
		t.Errorf("Expected sidecar mapped to carousel, got %q", snap.Posts[2].Kind)
	}
}

func TestFetchAccount_FallsBackToLegacyEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/users/web_profile_info/" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		if r.URL.Query().Get("__a") == "1" {
			fmt.Fprint(w, `{"graphql":{"user":{"full_name":"Nike","edge_owner_to_timeline_media":{"edges":[{"node":{"id":"201","shortcode":"xyz","display_url":"https://cdn.example.com/201.jpg","taken_at_timestamp":1717243200}}]}}}}`)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	snap, err := testClient(srv.URL).FetchAccount(context.Background(), "nike")
	if err != nil {
		t.Fatalf("FetchAccount() error = %v", err)
	}
	if len(snap.Posts) != 1 || snap.Posts[0].ID != "201" {
		t.Errorf("Unexpected snapshot from legacy endpoint: %+v", snap.Posts)
	}
}

func TestFetchAccount_FallsBackToProfileHTML(t *testing.T) {
	page := `<html><head>
		<script type="application/ld+json">{"@type":"ProfilePage","name":"Nike","image":"https://cdn.example.com/nike.jpg"}</script>
	</head><body></body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/nike/" && r.URL.RawQuery == "" {
			fmt.Fprint(w, page)
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	snap, err := testClient(srv.URL).FetchAccount(context.Background(), "nike")
	if err != nil {
		t.Fatalf("FetchAccount() error = %v", err)
	}
	if snap.DisplayName != "Nike" || snap.AvatarRef != "https://cdn.example.com/nike.jpg" {
		t.Errorf("Unexpected profile from HTML fallback: %+v", snap)
	}
	if len(snap.Posts) != 0 {
		t.Errorf("Expected no posts from bare profile page, got %d", len(snap.Posts))
	}
}

func TestFetchAccount_InlinedProfileJSON(t *testing.T) {
	page := `<html><head>
		<script type="application/json">` + webProfilePayload + `</script>
	</head><body></body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/nike/" && r.URL.RawQuery == "" {
			fmt.Fprint(w, page)
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	snap, err := testClient(srv.URL).FetchAccount(context.Background(), "nike")
	if err != nil {
		t.Fatalf("FetchAccount() error = %v", err)
	}
	if len(snap.Posts) != 3 {
		t.Errorf("Expected posts recovered from inlined profile JSON, got %d", len(snap.Posts))
	}
}

func TestFetchAccount_AllEndpointsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).FetchAccount(context.Background(), "nike"); err == nil {
		t.Fatal("Expected error when every endpoint fails")
	}
}

func TestFetchAccount_MalformedJSONFallsThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/users/web_profile_info/" {
			fmt.Fprint(w, `{"data": not-json`)
			return
		}
		if r.URL.Query().Get("__a") == "1" {
			fmt.Fprint(w, `{"graphql":{"user":{"full_name":"Nike"}}}`)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	snap, err := testClient(srv.URL).FetchAccount(context.Background(), "nike")
	if err != nil {
		t.Fatalf("FetchAccount() error = %v", err)
	}
	if snap.DisplayName != "Nike" {
		t.Errorf("Expected fallback endpoint to serve the profile, got %+v", snap)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		node graphNode
		want models.PostKind
	}{
		{name: "Image", node: graphNode{TypeName: "GraphImage"}, want: models.KindImage},
		{name: "Video", node: graphNode{TypeName: "GraphVideo", IsVideo: true}, want: models.KindVideo},
		{name: "Sidecar", node: graphNode{TypeName: "GraphSidecar"}, want: models.KindCarousel},
		{name: "SidecarWinsOverVideo", node: graphNode{TypeName: "GraphSidecar", IsVideo: true}, want: models.KindCarousel},
		{name: "Unknown", node: graphNode{}, want: models.KindImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := kindOf(tt.node); got != tt.want {
				t.Errorf("kindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTitleCase(t *testing.T) {
	if got := TitleCase("nike"); got != "Nike" {
		t.Errorf("TitleCase(nike) = %q", got)
	}
	if got := TitleCase(""); got != "" {
		t.Errorf("TitleCase(empty) = %q", got)
	}
}
