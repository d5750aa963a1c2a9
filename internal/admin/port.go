package admin

import (
	"context"
	"time"

	"github.com/giro-sh/license-server/internal/kernel"
)

type Repository interface {
	Create(ctx context.Context, a Admin) error
	FindByID(ctx context.Context, id kernel.AdminID) (*Admin, error)
	FindByEmail(ctx context.Context, email string) (*Admin, error)
	Update(ctx context.Context, a Admin) error
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, t RefreshToken) error
	FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForAdmin(ctx context.Context, adminID kernel.AdminID) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type ApiKeyRepository interface {
	Create(ctx context.Context, k ApiKey) error
	FindByID(ctx context.Context, id string) (*ApiKey, error)
	FindByHash(ctx context.Context, keyHash string) (*ApiKey, error)
	ListForAdmin(ctx context.Context, adminID kernel.AdminID) ([]ApiKey, error)
	Revoke(ctx context.Context, id string) error
	TouchLastUsed(ctx context.Context, id string) error
	DeleteRevokedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// EmailNotifier is the narrow seam Service uses to fire off a best-effort
// security notification (§5: outbound calls are enqueued, never made
// inline from the request path). The composition root supplies an
// implementation backed by internal/jobx; Service never sees a queue.
type EmailNotifier interface {
	NotifyEmail(ctx context.Context, to, subject, body string) error
}
