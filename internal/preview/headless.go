package preview

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

type headlessPage struct {
	Title       string `json:"title"`
	SiteName    string `json:"siteName"`
	Description string `json:"description"`
	Text        string `json:"text"`
}

const extractScript = `(() => {
	const meta = (sel) => { const m = document.querySelector(sel); return m ? (m.getAttribute('content') || '') : ''; };
	const root = document.querySelector('main, article') || document.body;
	return {
		title: meta('meta[property="og:title"]') || document.title || '',
		siteName: meta('meta[property="og:site_name"]'),
		description: meta('meta[name="description"]') || meta('meta[property="og:description"]'),
		text: root ? root.innerText : ''
	};
})()`

func (s *Service) fetchHeadless(ctx context.Context, pageURL string) (Result, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(userAgent),
		)...,
	)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	reqCtx, reqCancel := context.WithTimeout(browserCtx, s.timeout)
	defer reqCancel()

	var page headlessPage
	err := chromedp.Run(reqCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500*time.Millisecond),
		chromedp.EvaluateAsDevTools(extractScript, &page),
	)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Title:       page.Title,
		Company:     page.SiteName,
		Description: page.Description,
		Text:        page.Text,
	}, nil
}
