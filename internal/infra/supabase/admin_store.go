package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/boddenberg/workshop-registration-go/internal/domain"
)

// GetAdminByEmail reads an admin credential row (implements port.AdminStore).
func (c *Client) GetAdminByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetAdminByEmail")
	defer span.End()

	body, err := c.execute("get admin", func() ([]byte, error) {
		return c.doRequest(ctx, http.MethodGet, tableAdminUsers+"?select=*&"+eq("email", email)+"&limit=1")
	})
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}

	var rows []domain.AdminUser
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &domain.ErrStore{Operation: "get admin", Err: fmt.Errorf("decode admin: %w", err)}
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
