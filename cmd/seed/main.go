// Command seed populates the database with demo data.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"commune/internal/config"
	"commune/internal/database"
	"commune/internal/seed"

	"gopkg.in/yaml.v3"
)

// scenario is the YAML shape accepted via -scenario.
type scenario struct {
	Users           int   `yaml:"users"`
	Posts           int   `yaml:"posts"`
	Chats           int   `yaml:"chats"`
	MessagesPerChat int   `yaml:"messages_per_chat"`
	MaxDays         int   `yaml:"max_days"`
	SkipBcrypt      bool  `yaml:"skip_bcrypt"`
	RandomSeed      int64 `yaml:"random_seed"`
}

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 0, "Number of posts to create (0 = 3x users)")
	numChats := flag.Int("chats", 0, "Number of chats to create (0 = users/4)")
	messages := flag.Int("messages", 15, "Messages per chat")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	skipBcrypt := flag.Bool("skip-bcrypt", false, "Store plaintext passwords (dev fast mode)")
	randomSeed := flag.Int64("seed", 0, "Random seed for reproducible runs (0 = time-based)")
	scenarioPath := flag.String("scenario", "", "YAML scenario file overriding the count flags")
	flag.Parse()

	opts := seed.Options{
		NumUsers:        *numUsers,
		NumPosts:        *numPosts,
		NumChats:        *numChats,
		MessagesPerChat: *messages,
		SkipBcrypt:      *skipBcrypt,
		RandomSeed:      *randomSeed,
		ShouldClean:     *shouldClean,
	}

	if *scenarioPath != "" {
		sc, err := loadScenario(*scenarioPath)
		if err != nil {
			log.Fatalf("Failed to load scenario: %v", err)
		}
		opts.NumUsers = sc.Users
		opts.NumPosts = sc.Posts
		opts.NumChats = sc.Chats
		opts.MessagesPerChat = sc.MessagesPerChat
		opts.MaxDays = sc.MaxDays
		opts.SkipBcrypt = sc.SkipBcrypt
		opts.RandomSeed = sc.RandomSeed
		log.Printf("Loaded scenario from %s", *scenarioPath)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Run(db, opts); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	if err := seed.EnsureWelcomeChat(db); err != nil {
		log.Fatalf("Welcome chat seeding failed: %v", err)
	}

	log.Println("Done. All generated users have the password: password123")
}

func loadScenario(path string) (*scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc scenario
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &sc, nil
}
