package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"schedbot/internal/schedule"
	"schedbot/pkg/logx"
)

// extractRowsJS pulls the timetable grid out of the rendered sheet. Each row
// must expose the six known cell classes; rows that don't (headers, spacers)
// come back with empty fields and are dropped during mapping.
const extractRowsJS = `
(() => {
  const cell = (tr, name) => {
    const el = tr.querySelector('[data-col="' + name + '"], .' + name);
    return el ? el.textContent.trim() : '';
  };
  return Array.from(document.querySelectorAll('table tr')).map(tr => ({
    date:    cell(tr, 'date'),
    time:    cell(tr, 'time'),
    pair:    cell(tr, 'pair'),
    title:   cell(tr, 'title'),
    room:    cell(tr, 'room'),
    teacher: cell(tr, 'teacher'),
    raw:     tr.textContent.trim(),
  }));
})()
`

// Browser is the chromedp-backed Fetcher. One Browser may serve fetches for
// several groups; each Fetch runs in its own tab context.
type Browser struct {
	cfg Config
	log logx.Logger
}

func NewBrowser(cfg Config, log logx.Logger) (*Browser, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("fetch: source url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Browser{cfg: cfg, log: log}, nil
}

// Fetch navigates to the sheet, waits for the grid, and extracts the group's
// entries. The whole operation is bounded by the configured timeout; a
// navigation or extraction failure is returned to the caller (the watch loop
// logs it and retries next cycle).
func (b *Browser) Fetch(ctx context.Context, group string) ([]schedule.Entry, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.NoSandbox,
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	runCtx, cancel := context.WithTimeout(tabCtx, b.cfg.Timeout)
	defer cancel()

	target := b.groupURL(group)
	b.log.Debug("fetching timetable", logx.String("group", group), logx.String("url", target))

	var rows []rawRow
	err := chromedp.Run(runCtx,
		chromedp.Navigate(target),
		chromedp.WaitVisible("table", chromedp.ByQuery),
		chromedp.Evaluate(extractRowsJS, &rows),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch group %s: %w", group, err)
	}

	entries := mapRows(rows, time.Now())
	b.log.Debug("timetable extracted",
		logx.String("group", group),
		logx.Int("rows", len(rows)),
		logx.Int("entries", len(entries)))
	return entries, nil
}

// groupURL appends the group selector to the sheet URL.
func (b *Browser) groupURL(group string) string {
	u, err := url.Parse(b.cfg.URL)
	if err != nil {
		return b.cfg.URL
	}
	q := u.Query()
	q.Set("group", group)
	u.RawQuery = q.Encode()
	return u.String()
}
