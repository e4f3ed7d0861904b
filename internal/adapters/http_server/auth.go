package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"boat_rental/internal/domain"
)

const sessionCookie = "session"

type ctxKey int

const userKey ctxKey = 0

type claims struct {
	UserID int64  `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Auth issues and verifies session tokens. Tokens ride in the
// Authorization header or in a cookie; both carry the same JWT.
type Auth struct {
	users  domain.UserRepository
	secret []byte
	ttl    time.Duration
}

func NewAuth(users domain.UserRepository, secret string, ttl time.Duration) *Auth {
	if ttl <= 0 {
		ttl = 168 * time.Hour
	}
	return &Auth{users: users, secret: []byte(secret), ttl: ttl}
}

func (a *Auth) issue(u domain.User) (string, time.Time, error) {
	exp := time.Now().Add(a.ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: u.ID,
		Role:   string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	signed, err := tok.SignedString(a.secret)
	return signed, exp, err
}

func (a *Auth) verify(raw string) (*claims, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, domain.ErrUnauthorized
	}
	return &c, nil
}

func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// RequireAuth resolves the session user and stores it in the request
// context. No token, a bad token, or a vanished user all end the same way.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := tokenFrom(r)
		if raw == "" {
			writeProblem(w, http.StatusUnauthorized, "Unauthorized", "missing credentials")
			return
		}
		c, err := a.verify(raw)
		if err != nil {
			writeProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
			return
		}
		u, err := a.users.GetUserByID(r.Context(), c.UserID)
		if err != nil {
			writeProblem(w, http.StatusUnauthorized, "Unauthorized", "unknown account")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, &u)))
	})
}

func userFrom(ctx context.Context) *domain.User {
	u, _ := ctx.Value(userKey).(*domain.User)
	return u
}

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
	Plan     string `json:"plan,omitempty"`
}

type sessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      userSummary `json:"user"`
}

type userSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Plan     string `json:"plan"`
}

func (a *Auth) register(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "malformed JSON")
		return
	}
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || len(in.Password) < 8 {
		writeProblem(w, http.StatusBadRequest, "Invalid credentials", "username and a password of at least 8 characters are required")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal", "could not hash password")
		return
	}
	plan := domain.SubscriptionPlan(in.Plan)
	if plan != domain.PlanStandard && plan != domain.PlanAdvanced {
		plan = domain.PlanFree
	}
	u, err := a.users.CreateUser(r.Context(), domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         domain.EffectiveRole(domain.RoleTourist, plan),
		Plan:         plan,
		Phone:        in.Phone,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			writeProblem(w, http.StatusConflict, "Conflict", "username already taken")
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Internal", "could not create account")
		return
	}
	a.writeSession(w, u, http.StatusCreated)
}

func (a *Auth) login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "malformed JSON")
		return
	}
	u, err := a.users.GetUserByUsername(r.Context(), strings.TrimSpace(in.Username))
	if err != nil {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "wrong username or password")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "wrong username or password")
		return
	}
	a.writeSession(w, u, http.StatusOK)
}

func (a *Auth) writeSession(w http.ResponseWriter, u domain.User, status int) {
	token, exp, err := a.issue(u)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal", "could not sign token")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, status, sessionResponse{
		Token:     token,
		ExpiresAt: exp,
		User:      userSummary{ID: u.ID, Username: u.Username, Role: string(u.Role), Plan: string(u.Plan)},
	})
}
