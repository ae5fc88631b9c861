package source

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/pauljones0/artist-push-bot/internal/models"
)

var mockCaptions = []string{
	"Amazing content from %s 🎨",
	"Check out this awesome post by %s ✨",
	"%s sharing some great moments 📸",
	"Latest update from %s 🚀",
	"%s with some incredible content 💫",
	"Don't miss this post from %s 🔥",
}

var mockKinds = []models.PostKind{models.KindImage, models.KindVideo, models.KindCarousel}

// MockGenerator fabricates plausible account snapshots for demos and tests:
// 3-8 posts per account, timestamped within the last 24 hours, newest first.
// Each call invents fresh post IDs, so every cycle against the mock surfaces
// new items.
type MockGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewMock() *MockGenerator {
	return newMock(rand.New(rand.NewSource(time.Now().UnixNano())), time.Now)
}

// NewMockSeeded is NewMock with a deterministic stream, for tests.
func NewMockSeeded(seed int64, now func() time.Time) *MockGenerator {
	return newMock(rand.New(rand.NewSource(seed)), now)
}

func newMock(rng *rand.Rand, now func() time.Time) *MockGenerator {
	return &MockGenerator{rng: rng, now: now}
}

func (g *MockGenerator) FetchAccount(_ context.Context, accountID string) (*models.AccountSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	count := 3 + g.rng.Intn(6)
	posts := make([]models.Post, 0, count)
	for i := 0; i < count; i++ {
		age := time.Duration(g.rng.Int63n(int64(24 * time.Hour)))
		postedAt := now.Add(-age)
		posts = append(posts, models.Post{
			ID:        fmt.Sprintf("post_%s_%d_%d", accountID, i, postedAt.UnixMilli()),
			AccountID: accountID,
			Kind:      mockKinds[g.rng.Intn(len(mockKinds))],
			MediaRef:  fmt.Sprintf("https://picsum.photos/400/400?random=%d", postedAt.UnixMilli()),
			Caption:   fmt.Sprintf(mockCaptions[g.rng.Intn(len(mockCaptions))], accountID),
			Timestamp: postedAt,
			Permalink: "https://instagram.com/" + accountID,
		})
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].Timestamp.After(posts[j].Timestamp)
	})

	return &models.AccountSnapshot{
		AccountID:   accountID,
		DisplayName: TitleCase(accountID),
		AvatarRef:   DefaultAvatarRef(accountID),
		Posts:       posts,
	}, nil
}
