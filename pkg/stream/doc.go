// Package stream provides lazily evaluated, composable record streams over
// several independent feeds.
//
// A Stream is built from sub-streams (Sources) that are merged in order:
// the first is drained completely before the second is fetched. Operators
// return new streams and do no work; pages are fetched only while a terminal
// call is being consumed, and only as far as the consumer reads.
//
// Example usage:
//
//	s := stream.New(tagX, tagY).
//		CreatedRange("2024-01-01", "2024-02-01").
//		Unique().
//		Limit(100)
//
//	for post, err := range s.All(ctx) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(post.Shortcode)
//	}
//
// Operator placement:
//   - Filter, FilterRange and CreatedRange run on each sub-stream before
//     merging, so one feed leaving the time window ends only that feed
//   - Limit, Unique and Top run on the merged stream
//
// Memory: Limit and the filters hold nothing; Top holds at most 2k records;
// Unique and ToList grow with the stream.
package stream
