package seed

import (
	"fmt"
	"log"

	"commune/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder.
type Options struct {
	NumUsers        int
	NumPosts        int
	NumChats        int
	MessagesPerChat int
	// MaxDays bounds how far back generated created_at timestamps go.
	MaxDays int
	// SkipBcrypt stores a plaintext password for dev fast mode.
	SkipBcrypt bool
	// RandomSeed pins the generators for reproducible runs; 0 means time-based.
	RandomSeed int64
	ShouldClean bool
}

// Run populates the database with a connected social mesh: users,
// posts with ratings, a subscription graph, and chats with members,
// messages and membership events.
func Run(db *gorm.DB, opts Options) error {
	if opts.ShouldClean {
		if err := Clean(db); err != nil {
			return fmt.Errorf("clean failed: %w", err)
		}
	}

	if opts.NumUsers <= 0 {
		opts.NumUsers = 20
	}
	if opts.NumPosts <= 0 {
		opts.NumPosts = opts.NumUsers * 3
	}
	if opts.NumChats <= 0 {
		opts.NumChats = opts.NumUsers / 4
		if opts.NumChats == 0 {
			opts.NumChats = 1
		}
	}
	if opts.MessagesPerChat <= 0 {
		opts.MessagesPerChat = 15
	}

	f := NewFactory(db, opts)

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser()
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		users = append(users, user)
	}
	log.Printf("seeded %d users", len(users))

	posts := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		author := users[f.rng.Intn(len(users))]
		post, err := f.CreatePost(author)
		if err != nil {
			return fmt.Errorf("create post: %w", err)
		}
		posts = append(posts, post)
	}
	log.Printf("seeded %d posts", len(posts))

	// Ratings: every post gets a handful of raters, ~80% likes.
	for _, post := range posts {
		raters := f.rng.Intn(len(users)/2 + 1)
		for i := 0; i < raters; i++ {
			rater := users[f.rng.Intn(len(users))]
			if rater.ID == post.UserID {
				continue
			}
			if err := f.RatePost(post, rater, f.rng.Intn(10) < 8); err != nil {
				return fmt.Errorf("rate post: %w", err)
			}
		}
	}

	// Subscription graph: each user follows a few others.
	for _, follower := range users {
		follows := f.rng.Intn(5) + 1
		for i := 0; i < follows; i++ {
			target := users[f.rng.Intn(len(users))]
			if err := f.Subscribe(follower, target); err != nil {
				return fmt.Errorf("subscribe: %w", err)
			}
		}
	}

	// Chats: owner plus a random membership, then a message backlog.
	for i := 0; i < opts.NumChats; i++ {
		owner := users[f.rng.Intn(len(users))]
		chat, err := f.CreateChat(owner, "")
		if err != nil {
			return fmt.Errorf("create chat: %w", err)
		}

		memberCount := f.rng.Intn(len(users)/2+1) + 1
		members := []*models.User{owner}
		for j := 0; j < memberCount; j++ {
			member := users[f.rng.Intn(len(users))]
			if err := f.AddChatMember(chat, member); err != nil {
				return fmt.Errorf("add chat member: %w", err)
			}
			members = append(members, member)
		}

		for j := 0; j < opts.MessagesPerChat; j++ {
			sender := members[f.rng.Intn(len(members))]
			if _, err := f.CreateMessage(chat, sender); err != nil {
				return fmt.Errorf("create message: %w", err)
			}
		}
	}
	log.Printf("seeded %d chats", opts.NumChats)

	return nil
}

// Clean wipes all seeded domain data. Table order respects FKs for
// databases that enforce them.
func Clean(db *gorm.DB) error {
	tables := []string{
		"messages", "events", "chat_members", "chats",
		"post_likes", "post_dislikes", "posts",
		"subscriptions", "users",
	}
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clean %s: %w", table, err)
		}
	}
	return nil
}
