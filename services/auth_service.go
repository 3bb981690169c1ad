package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"vibe_server/models"
)

const tokenIssuer = "vibe-app"

// AuthService verifies platform identity proofs, runs first-sight user
// creation and issues the session tokens the protected routes check.
type AuthService struct {
	Secrets *SecretsService
	Users   *UserService

	BotTokenARN  string
	JWTSecretARN string
	TokenTTL     time.Duration
}

// AuthenticatePlatform verifies the platform token, creates or refreshes the
// user and returns a signed session token. Banned users are rejected before
// any token is issued.
func (as *AuthService) AuthenticatePlatform(ctx context.Context, req *models.AuthRequest) (*models.AuthResult, error) {
	if req.Platform == "" || req.PlatformToken == "" {
		return nil, models.NewValidationError("platform and platformToken are required")
	}
	if req.Platform != models.PlatformTelegram {
		return nil, models.NewValidationError("unsupported platform: %s", req.Platform)
	}

	botToken, err := as.Secrets.GetSecret(ctx, as.BotTokenARN)
	if err != nil {
		return nil, models.NewStorageError("failed to load bot token", err)
	}
	platformUser, err := VerifyTelegramInitData(req.PlatformToken, botToken)
	if err != nil {
		return nil, err
	}

	platformID := fmt.Sprintf("%v", platformUser["id"])
	if platformID == "" || platformUser["id"] == nil {
		return nil, models.NewUnauthorizedError("platform user has no ID")
	}

	// Platform profile fields win over whatever the client sent alongside.
	metadata := make(map[string]interface{}, len(req.PlatformMetadata)+len(platformUser))
	for k, v := range req.PlatformMetadata {
		metadata[k] = v
	}
	for k, v := range platformUser {
		metadata[k] = v
	}

	user, created, err := as.Users.CreateOrUpdateUser(ctx, req.Platform, platformID, metadata)
	if err != nil {
		return nil, err
	}
	if as.Users.IsBanned(user) {
		return nil, models.NewBannedError()
	}

	token, err := as.IssueToken(ctx, user.UserID)
	if err != nil {
		return nil, err
	}

	log.Printf("Authenticated user %s via %s (new=%t)", user.UserID, req.Platform, created)
	return &models.AuthResult{
		Token:      token,
		UserID:     user.UserID,
		ProfileIDs: user.AllocatedProfileIDs,
		NewUser:    created,
	}, nil
}

// IssueToken signs a session token carrying the user ID.
func (as *AuthService) IssueToken(ctx context.Context, userID string) (string, error) {
	secret, err := as.Secrets.GetSecret(ctx, as.JWTSecretARN)
	if err != nil {
		return "", models.NewStorageError("failed to load signing secret", err)
	}
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"uid": userID,
		"iat": jwt.NewNumericDate(now),
		"exp": jwt.NewNumericDate(now.Add(as.TokenTTL)),
		"iss": tokenIssuer,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", models.NewStorageError("failed to sign token", err)
	}
	return token, nil
}

// VerifyToken validates a session token and returns the user ID it carries.
func (as *AuthService) VerifyToken(ctx context.Context, tokenString string) (string, error) {
	secret, err := as.Secrets.GetSecret(ctx, as.JWTSecretARN)
	if err != nil {
		return "", models.NewStorageError("failed to load signing secret", err)
	}
	token, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (interface{}, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", models.NewUnauthorizedError("invalid or expired token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", models.NewUnauthorizedError("invalid token claims")
	}
	uid, ok := claims["uid"].(string)
	if !ok || uid == "" {
		return "", models.NewUnauthorizedError("token carries no user ID")
	}
	return uid, nil
}

// VerifyTelegramInitData checks the integrity of Telegram WebApp init data
// and returns the embedded user object. The hash field is recomputed with a
// secret derived from the bot token; any mismatch rejects the whole payload.
func VerifyTelegramInitData(initData, botToken string) (map[string]interface{}, error) {
	params := map[string]string{}
	for _, pair := range strings.Split(initData, "&") {
		key, rawValue, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, models.NewUnauthorizedError("malformed authentication data")
		}
		params[key] = value
	}

	providedHash := params["hash"]
	if providedHash == "" {
		return nil, models.NewUnauthorizedError("authentication data has no hash")
	}
	delete(params, "hash")

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+params[k])
	}
	dataCheckString := strings.Join(lines, "\n")

	secretMac := hmac.New(sha256.New, []byte("WebAppData"))
	secretMac.Write([]byte(botToken))
	secretKey := secretMac.Sum(nil)

	mac := hmac.New(sha256.New, secretKey)
	mac.Write([]byte(dataCheckString))
	calculated := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(calculated), []byte(providedHash)) {
		return nil, models.NewUnauthorizedError("authentication data failed verification")
	}

	userJSON := params["user"]
	if userJSON == "" {
		return nil, models.NewUnauthorizedError("authentication data has no user")
	}

	decoder := json.NewDecoder(strings.NewReader(userJSON))
	decoder.UseNumber()
	var user map[string]interface{}
	if err := decoder.Decode(&user); err != nil {
		return nil, models.NewUnauthorizedError("authentication data has malformed user")
	}
	return user, nil
}
