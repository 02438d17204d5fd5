package feeds

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Sternrassler/igstream/pkg/model"
)

// PostInfo resolves a post reference to its full record. A record reference
// is returned as is; shortcodes and feed posts are looked up.
func (f *Feeds) PostInfo(ctx context.Context, ref model.PostRef) (model.Post, error) {
	switch ref.Kind() {
	case model.PostRefRecord:
		return ref.Post(), nil
	case model.PostRefShortcode, model.PostRefThumb:
		return f.postByShortcode(ctx, ref.Shortcode())
	}
	return model.Post{}, fmt.Errorf("invalid post reference %s", ref)
}

func (f *Feeds) postByShortcode(ctx context.Context, shortcode string) (model.Post, error) {
	if shortcode == "" {
		return model.Post{}, fmt.Errorf("post reference without shortcode")
	}
	raw, err := f.fetcher.PostInfo(ctx, shortcode)
	if err != nil {
		return model.Post{}, fmt.Errorf("post info %s: %w", shortcode, err)
	}
	post, err := MapPost(raw)
	if err != nil {
		return model.Post{}, fmt.Errorf("post info %s: %w", shortcode, err)
	}
	return post, nil
}

// UserInfo resolves a user reference to its profile.
//
// Profiles are only served by username, so an id is resolved through the
// user's newest post: first post of the timeline, its detail, the owner's
// username, then the profile. That costs three requests and fails with
// ErrNotFound for a user without posts.
func (f *Feeds) UserInfo(ctx context.Context, ref model.UserRef) (model.User, error) {
	switch ref.Kind() {
	case model.UserRefRecord:
		return ref.User(), nil
	case model.UserRefName:
		return f.userByName(ctx, ref.Name())
	case model.UserRefID:
		return f.userByID(ctx, ref.ID())
	case model.UserRefPost:
		if name := ref.Post().OwnerUsername; name != "" {
			return f.userByName(ctx, name)
		}
		return f.userByID(ctx, ref.Post().OwnerID)
	case model.UserRefThumb:
		return f.userByID(ctx, ref.Thumb().OwnerID)
	}
	return model.User{}, fmt.Errorf("invalid user reference %s", ref)
}

func (f *Feeds) userByName(ctx context.Context, username string) (model.User, error) {
	if username == "" {
		return model.User{}, fmt.Errorf("user reference without username")
	}
	raw, err := f.fetcher.UserInfo(ctx, username)
	if err != nil {
		return model.User{}, fmt.Errorf("user info %s: %w", username, err)
	}
	user, err := MapUser(raw)
	if err != nil {
		return model.User{}, fmt.Errorf("user info %s: %w", username, err)
	}
	return user, nil
}

func (f *Feeds) userByID(ctx context.Context, id int64) (model.User, error) {
	if id <= 0 {
		return model.User{}, fmt.Errorf("invalid user id %d", id)
	}

	f.logger.Debug().Int64("user_id", id).Msg("Resolving username through newest post")

	first, err := f.User(model.UserByID(id)).Limit(1).WithProgress(0, nil).Collect(ctx)
	if err != nil {
		return model.User{}, fmt.Errorf("user %d: %w", id, err)
	}
	if len(first) == 0 {
		return model.User{}, fmt.Errorf("user %d has no posts: %w", id, ErrNotFound)
	}

	post, err := f.postByShortcode(ctx, first[0].Shortcode)
	if err != nil {
		return model.User{}, fmt.Errorf("user %d: %w", id, err)
	}
	if post.OwnerUsername == "" {
		return model.User{}, fmt.Errorf("user %d: post %s has no owner username: %w", id, post.Shortcode, ErrNotFound)
	}
	return f.userByName(ctx, post.OwnerUsername)
}

// userID returns the numeric id behind ref, looking it up for usernames.
func (f *Feeds) userID(ctx context.Context, ref model.UserRef) (int64, error) {
	switch ref.Kind() {
	case model.UserRefID:
		return ref.ID(), nil
	case model.UserRefRecord:
		return ref.User().UserID, nil
	case model.UserRefPost:
		return ref.Post().OwnerID, nil
	case model.UserRefThumb:
		return ref.Thumb().OwnerID, nil
	case model.UserRefName:
		user, err := f.userByName(ctx, ref.Name())
		if err != nil {
			return 0, err
		}
		return user.UserID, nil
	}
	return 0, fmt.Errorf("invalid user reference %s", ref)
}

// ParseUserRefs parses command-line user arguments.
func ParseUserRefs(args []string) ([]model.UserRef, error) {
	refs := make([]model.UserRef, 0, len(args))
	for _, a := range args {
		ref, err := model.ParseUserRef(a)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// ParseLocationIDs parses command-line location arguments.
func ParseLocationIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("location id %q is not numeric", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
