package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/model"
)

// GetJWTSecret retrieves the JWT secret from the database.
// If no secret exists, it generates one, stores it, and returns it.
// Uses INSERT ... ON CONFLICT DO NOTHING + re-SELECT to avoid a TOCTOU race
// on concurrent startup.
func GetJWTSecret(ctx context.Context, q db.Querier) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := q.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES ('jwt_secret', ?) ON CONFLICT (key) DO NOTHING`,
		candidate,
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt_secret: %w", err)
	}

	// Always read back (either our insert or the existing value).
	var secret string
	err = q.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = 'jwt_secret'`,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying jwt_secret: %w", err)
	}

	return secret, nil
}

const siteSettingsID = "site"

// DefaultSiteSettings are returned before anything has been saved.
var DefaultSiteSettings = model.SiteSettings{
	CompanyName:        "Turtle Album",
	CompanyDescription: "Breeder catalogue",
}

// GetSiteSettings returns the company details, falling back to defaults.
func GetSiteSettings(ctx context.Context, q db.Querier) (*model.SiteSettings, error) {
	s := &model.SiteSettings{}
	err := q.QueryRowContext(ctx,
		`SELECT company_name, company_logo, company_description, contact_phone, contact_email,
		        contact_address, customer_service_qr_code, wechat_number, updated_at
		 FROM site_settings WHERE id = ?`, siteSettingsID,
	).Scan(&s.CompanyName, &s.CompanyLogo, &s.CompanyDescription, &s.ContactPhone, &s.ContactEmail,
		&s.ContactAddress, &s.CustomerServiceQRCode, &s.WechatNumber, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		def := DefaultSiteSettings
		return &def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting site settings: %w", err)
	}
	return s, nil
}

// UpdateSiteSettings applies a patch to the company details and returns
// the result.
func UpdateSiteSettings(ctx context.Context, d *db.DB, p model.SiteSettingsPatch) (*model.SiteSettings, error) {
	var out *model.SiteSettings
	err := d.InTx(ctx, func(tx *db.Tx) error {
		cur, err := GetSiteSettings(ctx, tx)
		if err != nil {
			return err
		}

		apply := func(f model.Field[string], dst *string) {
			if f.Set {
				*dst = f.Value
			}
		}
		apply(p.CompanyName, &cur.CompanyName)
		apply(p.CompanyLogo, &cur.CompanyLogo)
		apply(p.CompanyDescription, &cur.CompanyDescription)
		apply(p.ContactPhone, &cur.ContactPhone)
		apply(p.ContactEmail, &cur.ContactEmail)
		apply(p.ContactAddress, &cur.ContactAddress)
		apply(p.CustomerServiceQRCode, &cur.CustomerServiceQRCode)
		apply(p.WechatNumber, &cur.WechatNumber)
		cur.UpdatedAt = now()

		_, err = tx.ExecContext(ctx,
			`INSERT INTO site_settings (id, company_name, company_logo, company_description, contact_phone,
			     contact_email, contact_address, customer_service_qr_code, wechat_number, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET
			     company_name = excluded.company_name,
			     company_logo = excluded.company_logo,
			     company_description = excluded.company_description,
			     contact_phone = excluded.contact_phone,
			     contact_email = excluded.contact_email,
			     contact_address = excluded.contact_address,
			     customer_service_qr_code = excluded.customer_service_qr_code,
			     wechat_number = excluded.wechat_number,
			     updated_at = excluded.updated_at`,
			siteSettingsID, cur.CompanyName, cur.CompanyLogo, cur.CompanyDescription, cur.ContactPhone,
			cur.ContactEmail, cur.ContactAddress, cur.CustomerServiceQRCode, cur.WechatNumber, cur.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("saving site settings: %w", err)
		}
		out = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
