package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2/jwt"
)

type contextKey string

const ClerkIDKey contextKey = "clerkID"
const WalletAddressKey contextKey = "walletAddress"

// WalletHeader carries the connected wallet address on every protected call.
const WalletHeader = "X-Wallet-Address"

// TokenAuthMiddleware requires a valid Clerk session token when verifyToken is
// set and stores its subject in the context. With verifyToken unset requests
// pass through without a subject.
func TokenAuthMiddleware(verifyToken bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, ok := authenticate(w, r, verifyToken)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WalletAuthMiddleware does what TokenAuthMiddleware does and also requires
// the wallet address header. Whether the wallet belongs to the token subject
// is decided by the user service.
func WalletAuthMiddleware(verifyToken bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, ok := authenticate(w, r, verifyToken)
			if !ok {
				return
			}

			address := strings.TrimSpace(r.Header.Get(WalletHeader))
			if address == "" {
				respondWithError(w, http.StatusUnauthorized, WalletHeader+" header required")
				return
			}

			ctx = context.WithValue(ctx, WalletAddressKey, address)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(w http.ResponseWriter, r *http.Request, verifyToken bool) (context.Context, bool) {
	ctx := r.Context()
	if !verifyToken {
		return ctx, true
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		respondWithError(w, http.StatusUnauthorized, "Authorization header required")
		return nil, false
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		respondWithError(w, http.StatusUnauthorized, "Invalid authorization format. Use 'Bearer <token>'")
		return nil, false
	}

	claims, err := jwt.Verify(ctx, &jwt.VerifyParams{Token: token})
	if err != nil {
		log.Printf("Token verification failed: %v", err)
		respondWithError(w, http.StatusUnauthorized, "Invalid token")
		return nil, false
	}

	return context.WithValue(ctx, ClerkIDKey, claims.Subject), true
}

// GetClerkID extracts Clerk user ID from context. It is empty when token
// verification is off.
func GetClerkID(ctx context.Context) string {
	clerkID, _ := ctx.Value(ClerkIDKey).(string)
	return clerkID
}

func GetWalletAddress(ctx context.Context) (string, bool) {
	address, ok := ctx.Value(WalletAddressKey).(string)
	return address, ok && address != ""
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
