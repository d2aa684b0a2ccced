package browser

import (
	"context"
	"fmt"

	"couponClipper/internal/extractor"
)

func (b *PlaywrightBrowser) GetPageSnapshot(ctx context.Context) (*PageSnapshot, error) {
	page := b.getPage()
	if page == nil {
		return nil, ErrNotLaunched
	}

	// networkidle на сайтах магазинов может не наступить, поэтому ошибку ожидания игнорируем
	_ = b.WaitForLoadState(ctx, "domcontentloaded")

	snapshot, err := extractor.ExtractPageSnapshot(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("ошибка извлечения snapshot: %w", err)
	}

	elements := make([]ElementInfo, len(snapshot.Elements))
	for i, elem := range snapshot.Elements {
		elements[i] = ElementInfo{
			Tag:         elem.Tag,
			Text:        elem.Text,
			Selector:    elem.Selector,
			Classes:     elem.Classes,
			Visible:     elem.Visible,
			Interactive: elem.Interactive,
			InViewport:  elem.InViewport,
			Bounds:      ViewportBounds(elem.Bounds),
			Role:        elem.Role,
			Label:       elem.Label,
			Priority:    elem.Priority,
		}
	}

	return &PageSnapshot{
		URL:      snapshot.URL,
		Title:    snapshot.Title,
		Elements: elements,
		Viewport: ViewportBounds(snapshot.Viewport),
	}, nil
}
