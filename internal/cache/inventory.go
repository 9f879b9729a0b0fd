package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix        = "user:%d"
	PostKeyPrefix        = "post:%d"
	PostRatingKeyPrefix  = "post:%d:rating"
	ChatKeyPrefix        = "chat:%d"
	ChatHistoryKeyPrefix = "chat:%d:history"
)

const (
	UserTTL        = 5 * time.Minute
	PostTTL        = 30 * time.Minute
	PostRatingTTL  = 1 * time.Minute
	ChatTTL        = 10 * time.Minute
	ChatHistoryTTL = 2 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func PostRatingKey(postID uint) string {
	return fmt.Sprintf(PostRatingKeyPrefix, postID)
}

func ChatKey(chatID uint) string {
	return fmt.Sprintf(ChatKeyPrefix, chatID)
}

func ChatHistoryKey(chatID uint) string {
	return fmt.Sprintf(ChatHistoryKeyPrefix, chatID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
	Invalidate(ctx, PostRatingKey(postID))
}

func InvalidateChat(ctx context.Context, chatID uint) {
	Invalidate(ctx, ChatKey(chatID))
	Invalidate(ctx, ChatHistoryKey(chatID))
}
