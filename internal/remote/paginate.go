package remote

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"

	mirrorerrors "github.com/Aman-CERP/fcmirror/internal/errors"
)

// paginate walks a cursor-paginated listing starting at first, yielding
// the objects of each page. next links are resolved against the page
// they came from. On failure it yields the error once and stops; a next
// link pointing back at an already fetched page is a failure.
func paginate[T any](ctx context.Context, c *Client, first string) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		seen := make(map[string]struct{})
		target := first

		for target != "" {
			if _, ok := seen[target]; ok {
				yield(nil, mirrorerrors.New(mirrorerrors.ErrCodePaginationLoop,
					"pagination loops back to an already fetched page", nil).WithDetail("url", target))
				return
			}
			seen[target] = struct{}{}

			var page listPage[T]
			if err := c.getJSON(ctx, target, &page); err != nil {
				yield(nil, err)
				return
			}

			c.logger.Debug("listing page fetched",
				slog.String("url", target),
				slog.Int("objects", len(page.Objects)),
				slog.Int("total", page.Meta.TotalCount))

			if !yield(page.Objects, nil) {
				return
			}

			if page.Meta.Next == nil || *page.Meta.Next == "" {
				return
			}
			ref, err := c.Resolve(target, nil)
			if err != nil {
				yield(nil, err)
				return
			}
			next, err := c.Resolve(*page.Meta.Next, ref)
			if err != nil {
				yield(nil, err)
				return
			}
			target = next.String()
		}
	}
}

// flatten turns a page sequence into an item sequence.
func flatten[T any](pages iter.Seq2[[]T, error]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for items, err := range pages {
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

func collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for item, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// Documents lazily lists the documents at documentsURI for scope. Pages
// are fetched as the range advances. The sequence may be ranged again;
// each range starts over from the first page.
func (c *Client) Documents(ctx context.Context, documentsURI string, scope Scope) iter.Seq2[DocumentRef, error] {
	first, err := c.ScopedURL(documentsURI, scope)
	if err != nil {
		return failed[DocumentRef](err)
	}
	ref, _ := url.Parse(first)

	return func(yield func(DocumentRef, error) bool) {
		for doc, err := range flatten(paginate[DocumentRef](ctx, c, first)) {
			if err == nil {
				err = c.absolutize(&doc, ref)
			}
			if !yield(doc, err) || err != nil {
				return
			}
		}
	}
}

// absolutize resolves the document's file and pages links against the
// listing they came from.
func (c *Client) absolutize(doc *DocumentRef, ref *url.URL) error {
	if doc.URL != "" {
		u, err := c.Resolve(doc.URL, ref)
		if err != nil {
			return err
		}
		doc.URL = u.String()
	}
	if doc.PagesURI != "" {
		u, err := c.Resolve(doc.PagesURI, ref)
		if err != nil {
			return err
		}
		doc.PagesURI = u.String()
	}
	return nil
}

// CollectDocuments fetches every document at documentsURI in server order.
func (c *Client) CollectDocuments(ctx context.Context, documentsURI string, scope Scope) ([]DocumentRef, error) {
	return collect(c.Documents(ctx, documentsURI, scope))
}

// Pages lists document pages one API page at a time.
func (c *Client) Pages(ctx context.Context, pagesURI string) iter.Seq2[[]Page, error] {
	first, err := c.ScopedURL(pagesURI, NoScope)
	if err != nil {
		return failed[[]Page](err)
	}
	return paginate[Page](ctx, c, first)
}

// CollectPages fetches every page at pagesURI.
func (c *Client) CollectPages(ctx context.Context, pagesURI string) ([]Page, error) {
	return collect(flatten(c.Pages(ctx, pagesURI)))
}

func failed[T any](err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, fmt.Errorf("listing: %w", err))
	}
}
