package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shinyyama/estate-backend/internal/config"
	"github.com/shinyyama/estate-backend/internal/db"
	"github.com/shinyyama/estate-backend/internal/model"
	"github.com/shinyyama/estate-backend/internal/repository"
	"github.com/shinyyama/estate-backend/internal/service"
	"gorm.io/datatypes"
)

type seedUser struct {
	UID         string
	DisplayName string
	Email       string
}

type seedProfessional struct {
	UID          string
	BusinessName string
	ServiceType  string
	Verified     bool
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	convRepo := repository.NewConversationRepository(gdb)
	profileRepo := repository.NewProfileRepository(gdb)
	notifRepo := repository.NewNotificationRepository(gdb)

	canSeed, err := shouldSeed(ctx, convRepo)
	if err != nil {
		return err
	}
	if !canSeed {
		log.Printf("conversations already exist; skipping seed (set FORCE_SEED=true to override)")
		return nil
	}

	for _, u := range seedUsers() {
		p := &model.Profile{UID: u.UID, Email: u.Email}
		if u.DisplayName != "" {
			name := u.DisplayName
			p.DisplayName = &name
		}
		if err := profileRepo.UpsertProfile(ctx, p); err != nil {
			return fmt.Errorf("upsert profile %s: %w", u.UID, err)
		}
	}
	for _, sp := range seedProfessionals() {
		if err := profileRepo.UpsertProfessional(ctx, &model.Professional{
			UID:          sp.UID,
			BusinessName: sp.BusinessName,
			ServiceType:  sp.ServiceType,
			IsVerified:   sp.Verified,
		}); err != nil {
			return fmt.Errorf("upsert professional %s: %w", sp.UID, err)
		}
	}

	messaging := service.NewMessaging(service.Deps{
		Conversations: convRepo,
		Messages:      repository.NewMessageRepository(gdb),
		Profiles:      profileRepo,
		Notifications: notifRepo,
	})
	buyer := messaging.Inbox("seed-buyer")
	cv, _, err := buyer.CreateConversationAndSendMessage(ctx, 1001, "seed-seller",
		"Hello, is the apartment still available for a viewing this week?", "Two-bedroom flat, Riverside", model.MessageTypeBuyerToSeller)
	if err != nil {
		return fmt.Errorf("seed conversation: %w", err)
	}
	seller := messaging.Inbox("seed-seller")
	if _, err := seller.SendMessage(ctx, cv.ID, "Yes, Thursday at 6pm works for me.", model.MessageTypeScheduling); err != nil {
		return fmt.Errorf("seed reply: %w", err)
	}
	if _, _, err := buyer.CreateConversationAndSendMessage(ctx, 0, "seed-notary",
		"I'd like a quote for the deed of sale.", "", model.MessageTypeProfessionalContact); err != nil {
		return fmt.Errorf("seed professional conversation: %w", err)
	}

	meta, err := json.Marshal(model.NotificationMetadata{ConversationID: cv.ID, PropertyID: cv.PropertyID})
	if err != nil {
		return err
	}
	if err := notifRepo.Create(ctx, &model.Notification{
		UserUID:  "seed-buyer",
		Type:     "new_message",
		Title:    "New reply from the seller",
		Body:     "Yes, Thursday at 6pm works for me.",
		Metadata: datatypes.JSON(meta),
	}); err != nil {
		return fmt.Errorf("seed notification: %w", err)
	}

	log.Printf("seeded %d profiles, %d professionals and demo conversations", len(seedUsers()), len(seedProfessionals()))
	return nil
}

func seedUsers() []seedUser {
	return []seedUser{
		{UID: "seed-buyer", Email: "jane.doe@example.com"},
		{UID: "seed-seller", DisplayName: "Marc Seller", Email: "marc@example.com"},
		{UID: "seed-notary", Email: "office@notary.example.com"},
	}
}

func seedProfessionals() []seedProfessional {
	return []seedProfessional{
		{UID: "seed-notary", BusinessName: "Riverside Notaries", ServiceType: "notary", Verified: true},
	}
}

func shouldSeed(ctx context.Context, convRepo repository.ConversationRepository) (bool, error) {
	existing, err := convRepo.FindByUser(ctx, "seed-buyer")
	if err != nil {
		return false, fmt.Errorf("count conversations: %w", err)
	}
	if len(existing) == 0 {
		return true, nil
	}
	return strings.EqualFold(os.Getenv("FORCE_SEED"), "true"), nil
}
