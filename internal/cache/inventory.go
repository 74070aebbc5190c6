package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	UserKeyPrefix    = "user:%d"
	PostKeyPrefix    = "post:%d"
	CommentKeyPrefix = "comment:%d"
	PostsListGenKey  = "posts:list:gen"
)

const (
	UserTTL      = 5 * time.Minute
	PostTTL      = 30 * time.Minute
	CommentTTL   = 30 * time.Minute
	PostsListTTL = 2 * time.Minute
	// genTTL outlives every entry TTL, so a generation that expires and
	// restarts at zero cannot resurrect an entry.
	genTTL = 24 * time.Hour
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// PostKey returns the cache key for a post at its current generation.
// Callers must compute the key before reading the database: a reader that
// loses a race with an invalidation then writes under a retired key.
func PostKey(ctx context.Context, postID uint) string {
	return versionedKey(ctx, fmt.Sprintf(PostKeyPrefix, postID))
}

// CommentKey is PostKey for comments.
func CommentKey(ctx context.Context, commentID uint) string {
	return versionedKey(ctx, fmt.Sprintf(CommentKeyPrefix, commentID))
}

func genKey(base string) string {
	return base + ":gen"
}

func currentGen(ctx context.Context, key string) int64 {
	if c := GetClient(); c != nil {
		if v, err := c.Get(ctx, key).Int64(); err == nil {
			return v
		}
	}
	return 0
}

func versionedKey(ctx context.Context, base string) string {
	return fmt.Sprintf("%s:v%d", base, currentGen(ctx, genKey(base)))
}

// bumpGenerations retires every cached entry of the given base keys.
func bumpGenerations(ctx context.Context, bases ...string) {
	c := GetClient()
	if c == nil || len(bases) == 0 {
		return
	}
	pipe := c.Pipeline()
	for _, base := range bases {
		pipe.Incr(ctx, genKey(base))
		pipe.Expire(ctx, genKey(base), genTTL)
	}
	_, _ = pipe.Exec(ctx)
}

// PostsListKey returns the cache key for one page of the post listing.
// Keys embed the current list generation, so InvalidatePostsList retires
// every cached page at once without scanning.
func PostsListKey(ctx context.Context, filter string) string {
	return fmt.Sprintf("posts:list:%d:%s", currentGen(ctx, PostsListGenKey), filter)
}

// keyFamily returns the key prefix used as a metrics label ("post", "posts").
func keyFamily(key string) string {
	family, _, _ := strings.Cut(key, ":")
	return family
}

// Invalidate deletes keys, ignoring errors.
func Invalidate(ctx context.Context, keys ...string) {
	c := GetClient()
	if c == nil || len(keys) == 0 {
		return
	}
	c.Del(ctx, keys...)
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidatePost retires cached posts and every cached listing page.
func InvalidatePost(ctx context.Context, postIDs ...uint) {
	bases := make([]string, 0, len(postIDs))
	for _, id := range postIDs {
		bases = append(bases, fmt.Sprintf(PostKeyPrefix, id))
	}
	bumpGenerations(ctx, bases...)
	InvalidatePostsList(ctx)
}

func InvalidateComments(ctx context.Context, commentIDs ...uint) {
	bases := make([]string, 0, len(commentIDs))
	for _, id := range commentIDs {
		bases = append(bases, fmt.Sprintf(CommentKeyPrefix, id))
	}
	bumpGenerations(ctx, bases...)
}

// InvalidatePostsList bumps the listing generation.
func InvalidatePostsList(ctx context.Context) {
	if c := GetClient(); c != nil {
		c.Incr(ctx, PostsListGenKey)
	}
}
