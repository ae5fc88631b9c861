package source

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/pauljones0/artist-push-bot/internal/models"
)

// BrowserSource renders the profile page in headless Chrome before parsing,
// for deployments where the plain JSON endpoints are blocked and the profile
// data only appears after client-side rendering.
type BrowserSource struct {
	timeout time.Duration
	baseURL string
}

func NewBrowser(timeout time.Duration) *BrowserSource {
	return &BrowserSource{timeout: timeout, baseURL: instagramBaseURL}
}

func (b *BrowserSource) FetchAccount(ctx context.Context, accountID string) (*models.AccountSnapshot, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(fetchCtx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.UserAgent(userAgent),
		)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	profileURL := fmt.Sprintf("%s/%s/", b.baseURL, accountID)
	var pageHTML string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(profileURL),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &pageHTML),
	)
	if err != nil {
		return nil, fmt.Errorf("browser fetch of %s failed: %w", profileURL, err)
	}

	return parseProfileHTML(accountID, []byte(pageHTML))
}
