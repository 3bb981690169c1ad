package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"vibe_server/config"
	"vibe_server/middleware"
	"vibe_server/routes"
	"vibe_server/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx := context.Background()

	log.Println("Initializing AWS clients...")
	dynamoClient, s3Client, secretsClient, err := services.InitializeAWSClients(ctx, cfg.AWSRegion)
	if err != nil {
		log.Fatalf("Failed to initialize AWS clients: %v", err)
	}
	log.Println("AWS clients initialized.")

	secretsService := services.NewSecretsService(secretsClient)
	idService, err := services.NewIDService(ctx, secretsService, cfg.UUIDNamespaceSecretARN, cfg.RecordIDLength)
	if err != nil {
		log.Fatalf("Failed to initialize ID derivation: %v", err)
	}

	dynamoService := &services.DynamoService{Client: dynamoClient, Table: cfg.TableName}
	s3Service := &services.S3Service{
		Client:    s3Client,
		Presigner: s3.NewPresignClient(s3Client),
		Bucket:    cfg.MediaBucket,
	}

	userService := &services.UserService{
		Dynamo:      dynamoService,
		IDs:         idService,
		MaxProfiles: cfg.MaxProfilesPerUser,
	}
	profileService := &services.ProfileService{
		Dynamo:   dynamoService,
		IDs:      idService,
		Users:    userService,
		MaxMedia: cfg.MaxMediaPerProfile,
	}
	mediaService := &services.MediaService{
		Dynamo:         dynamoService,
		S3:             s3Service,
		Profiles:       profileService,
		MaxFileSize:    cfg.MaxMediaFileSize,
		AllowedFormats: cfg.AllowedFormats,
		UploadExpiry:   time.Duration(cfg.UploadExpiryHours) * time.Hour,
	}
	processingService := &services.MediaProcessingService{
		Dynamo:           dynamoService,
		S3:               s3Service,
		CloudFrontDomain: cfg.CloudFrontDomain,
	}
	authService := &services.AuthService{
		Secrets:      secretsService,
		Users:        userService,
		BotTokenARN:  cfg.TelegramBotTokenSecretARN,
		JWTSecretARN: cfg.JWTSecretARN,
		TokenTTL:     time.Duration(cfg.JWTExpiryDays) * 24 * time.Hour,
	}
	authMiddleware := middleware.NewAuthMiddleware(authService)

	r := mux.NewRouter()

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Welcome to Vibe")
	}).Methods("GET")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}).Methods("GET")

	routes.RegisterAuthRoutes(r, authService)
	routes.RegisterMediaRoutes(r, mediaService, authMiddleware)
	routes.RegisterUserProfileRoutes(r, profileService, authMiddleware)
	routes.RegisterMediaProcessingRoutes(r, processingService)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	log.Printf("Starting server on port %s...", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, corsHandler))
}
