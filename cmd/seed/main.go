package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/forgo/fete/api/internal/config"
	"github.com/forgo/fete/api/internal/database"
	"github.com/forgo/fete/api/internal/model"
	"github.com/forgo/fete/api/internal/repository"
	"github.com/forgo/fete/api/internal/service"
	"github.com/forgo/fete/api/internal/storage"
	"github.com/forgo/fete/api/pkg/jwt"

	"golang.org/x/crypto/bcrypt"
)

// Seed accounts share one password so the printed tokens can be
// regenerated with a plain login.
const (
	organizerEmail = "alice@org.com"
	vendorEmail    = "bob@vendor.com"
	adminEmail     = "admin@fete.dev"
	seedPassword   = "pass123"
)

func main() {
	withAdmin := flag.Bool("admin", false, "Also create an admin identity")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fail("load config", err)
	}
	if err := cfg.Validate(); err != nil {
		fail("invalid configuration", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db := database.NewSurrealDB(database.Config{
		Host:      cfg.Database.Host,
		Port:      cfg.Database.Port,
		User:      cfg.Database.User,
		Password:  cfg.Database.Password,
		Namespace: cfg.Database.Namespace,
		Database:  cfg.Database.Database,
	})
	if err := db.Connect(ctx); err != nil {
		fail("connect to database", err)
	}
	defer func() { _ = db.Close() }()

	jwtService, err := jwt.NewService(jwt.Config{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		Expiration: cfg.JWT.Expiration,
	})
	if err != nil {
		fail("initialize JWT service", err)
	}

	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	offeringRepo := repository.NewOfferingRepository(db)
	blobs := storage.NewLocalStore(cfg.Uploads.Dir, cfg.Uploads.PublicPrefix)
	guard := service.NewGuard()

	auth := service.NewAuthService(service.AuthServiceConfig{
		Users:  userRepo,
		Tokens: jwtService,
		Blobs:  blobs,
	})
	eventService := service.NewEventService(eventRepo, guard)
	offeringService := service.NewOfferingService(offeringRepo, blobs, guard)
	bookingService := service.NewBookingService(service.BookingServiceConfig{
		Repo:      repository.NewBookingRepository(db),
		Events:    eventRepo,
		Offerings: offeringRepo,
		Guard:     guard,
	})

	organizer := ensureAccount(ctx, auth, service.RegisterInput{
		Name:     "Alice",
		Email:    organizerEmail,
		Password: seedPassword,
		Role:     string(model.RoleOrganizer),
		Phone:    "555-0101",
	})
	vendor := ensureAccount(ctx, auth, service.RegisterInput{
		Name:        "Bob",
		Email:       vendorEmail,
		Password:    seedPassword,
		Role:        string(model.RoleVendor),
		Phone:       "555-0102",
		ServiceType: string(model.ServiceDecorator),
	})

	event, err := eventService.CreateEvent(ctx, organizer.User, service.CreateEventInput{
		Title: "Launch Party",
		Date:  time.Now().AddDate(0, 1, 0).UTC().Format(time.DateOnly),
		Venue: "Rooftop Terrace",
	})
	if err != nil {
		fail("create event", err)
	}

	description := "Eight-foot arch in the colours of your choice"
	offering, err := offeringService.CreateOffering(ctx, vendor.User, vendor.User.ID, service.CreateOfferingInput{
		Title:       "Balloon Arch",
		Description: &description,
		Price:       150,
	})
	if err != nil {
		fail("create offering", err)
	}

	booking, err := bookingService.CreateBooking(ctx, organizer.User, service.CreateBookingInput{
		EventID:    event.ID,
		OfferingID: offering.ID,
	})
	if err != nil {
		fail("create booking", err)
	}

	fmt.Println("Seed Data Created")
	fmt.Println("=================")
	fmt.Printf("Organizer: %s (%s / %s)\n", organizer.User.ID, organizerEmail, seedPassword)
	fmt.Printf("Vendor:    %s (%s / %s)\n", vendor.User.ID, vendorEmail, seedPassword)
	fmt.Printf("Event:     %s\n", event.ID)
	fmt.Printf("Offering:  %s\n", offering.ID)
	fmt.Printf("Booking:   %s (%s)\n", booking.ID, booking.Status)
	fmt.Println()
	fmt.Println("Organizer token:")
	fmt.Println(organizer.Token)
	fmt.Println()
	fmt.Println("Vendor token:")
	fmt.Println(vendor.Token)

	if *withAdmin {
		admin := ensureAdmin(ctx, userRepo)
		token, err := jwtService.Sign(admin.ID, string(model.RoleAdmin))
		if err != nil {
			fail("sign admin token", err)
		}
		fmt.Println()
		fmt.Printf("Admin:     %s (%s / %s)\n", admin.ID, adminEmail, seedPassword)
		fmt.Println("Admin token:")
		fmt.Println(token)
	}
}

// ensureAccount registers an identity, or logs in when it already exists
func ensureAccount(ctx context.Context, auth *service.AuthService, in service.RegisterInput) *service.AuthResult {
	result, err := auth.Register(ctx, in)
	if errors.Is(err, service.ErrEmailAlreadyExists) {
		result, err = auth.Login(ctx, service.LoginInput{Email: in.Email, Password: in.Password})
	}
	if err != nil {
		fail("account "+in.Email, err)
	}
	return result
}

// ensureAdmin writes an admin identity directly; registration only admits
// organizers and vendors
func ensureAdmin(ctx context.Context, users *repository.UserRepository) *model.Identity {
	existing, err := users.GetByEmail(ctx, adminEmail)
	if err != nil {
		fail("look up admin", err)
	}
	if existing != nil {
		return existing
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), 12)
	if err != nil {
		fail("hash admin password", err)
	}
	admin := &model.Identity{
		Name:         "Admin",
		Email:        adminEmail,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		Phone:        "555-0100",
	}
	if err := users.Create(ctx, admin); err != nil {
		fail("create admin", err)
	}
	return admin
}

func fail(step string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", step, err)
	os.Exit(1)
}
