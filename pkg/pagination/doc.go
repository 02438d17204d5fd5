// Package pagination turns cursor-paginated web API feeds into lazy record
// sequences.
//
// The API reports, for every page, whether another page follows and the
// cursor to request it with. Pages can only be fetched one after the other,
// so pagination is strictly sequential: the next page is requested only when
// the consumer has taken every record of the current one and asks for more.
//
// Example usage:
//
//	req := model.NewFeedRequest(model.FeedTag, "sunset")
//	pages := pagination.Paginate(ctx, req, func(ctx context.Context, cursor string) (pagination.Page, error) {
//		return apiClient.Fetch(ctx, req, cursor)
//	})
//	var skipped pagination.SkipCounter
//	for thumb, err := range pagination.Flatten(req, pages, feeds.MapThumb, &skipped) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(thumb.Shortcode)
//	}
//
// The paginator:
//   - Starts with an empty cursor
//   - Stops after the page reporting has_next_page=false
//   - Never re-fetches a page and has no page cap (limit the records instead)
//   - Yields a fetch error once and ends the feed
//
// The flattener skips nodes that cannot be mapped and counts them on a
// SkipCounter instead of failing the feed.
package pagination
