package preview

import (
	"context"
	"strings"

	"github.com/gocolly/colly/v2"
)

func (s *Service) fetchStatic(ctx context.Context, pageURL string) (Result, error) {
	opts := []colly.CollectorOption{colly.UserAgent(userAgent), colly.MaxBodySize(maxBodyBytes)}
	if allowed := hostFromURL(pageURL); allowed != "" {
		opts = append(opts, colly.AllowedDomains(allowed))
	}
	c := colly.NewCollector(opts...)
	c.SetRequestTimeout(s.timeout)

	var (
		out         Result
		ogTitle     string
		description string
		reqErr      error
	)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	c.OnHTML("head title", func(e *colly.HTMLElement) {
		if out.Title == "" {
			out.Title = strings.TrimSpace(e.Text)
		}
	})
	c.OnHTML(`meta[property="og:title"]`, func(e *colly.HTMLElement) {
		ogTitle = strings.TrimSpace(e.Attr("content"))
	})
	c.OnHTML(`meta[property="og:site_name"]`, func(e *colly.HTMLElement) {
		out.Company = strings.TrimSpace(e.Attr("content"))
	})
	c.OnHTML(`meta[name="description"], meta[property="og:description"]`, func(e *colly.HTMLElement) {
		if description == "" {
			description = strings.TrimSpace(e.Attr("content"))
		}
	})
	c.OnHTML("body", func(e *colly.HTMLElement) {
		e.DOM.Find("script, style, noscript, nav, header, footer").Remove()
		main := e.DOM.Find("main, article").First()
		if main.Length() > 0 {
			out.Text = main.Text()
			return
		}
		out.Text = e.DOM.Text()
	})

	c.OnError(func(r *colly.Response, err error) {
		reqErr = err
	})

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := c.Visit(pageURL); err != nil {
		return Result{}, err
	}
	c.Wait()
	if reqErr != nil {
		return Result{}, reqErr
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if ogTitle != "" {
		out.Title = ogTitle
	}
	out.Description = description
	return out, nil
}
