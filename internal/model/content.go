package model

import "time"

// Carousel is one slide on the home page.
type Carousel struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"imageUrl"`
	LinkURL     string    `json:"linkUrl,omitempty"`
	IsActive    bool      `json:"isActive"`
	SortOrder   int       `json:"sortOrder"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CarouselInput is the body of a carousel create request.
type CarouselInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	LinkURL     string `json:"link_url"`
	IsActive    *bool  `json:"is_active"`
	SortOrder   int    `json:"sort_order"`
}

// CarouselPatch is a partial carousel update.
type CarouselPatch struct {
	Title       Field[string] `json:"title"`
	Description Field[string] `json:"description"`
	ImageURL    Field[string] `json:"image_url"`
	LinkURL     Field[string] `json:"link_url"`
	IsActive    Field[bool]   `json:"is_active"`
	SortOrder   Field[int]    `json:"sort_order"`
}

// Featured pins a breeder on the home page.
type Featured struct {
	ID        string    `json:"id"`
	BreederID string    `json:"productId"`
	IsActive  bool      `json:"isActive"`
	SortOrder int       `json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Breeder   *Breeder  `json:"product,omitempty"`
}

// FeaturedInput is the body of a featured create request.
type FeaturedInput struct {
	BreederID string `json:"product_id"`
	IsActive  *bool  `json:"is_active"`
	SortOrder int    `json:"sort_order"`
}

// FeaturedPatch is a partial featured update.
type FeaturedPatch struct {
	IsActive  Field[bool] `json:"is_active"`
	SortOrder Field[int]  `json:"sort_order"`
}

// SiteSettings holds the company details shown on the public site.
type SiteSettings struct {
	CompanyName           string    `json:"companyName"`
	CompanyLogo           string    `json:"companyLogo"`
	CompanyDescription    string    `json:"companyDescription"`
	ContactPhone          string    `json:"contactPhone"`
	ContactEmail          string    `json:"contactEmail"`
	ContactAddress        string    `json:"contactAddress"`
	CustomerServiceQRCode string    `json:"customerServiceQrCode"`
	WechatNumber          string    `json:"wechatNumber"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// SiteSettingsPatch is a partial settings update.
type SiteSettingsPatch struct {
	CompanyName           Field[string] `json:"company_name"`
	CompanyLogo           Field[string] `json:"company_logo"`
	CompanyDescription    Field[string] `json:"company_description"`
	ContactPhone          Field[string] `json:"contact_phone"`
	ContactEmail          Field[string] `json:"contact_email"`
	ContactAddress        Field[string] `json:"contact_address"`
	CustomerServiceQRCode Field[string] `json:"customer_service_qr_code"`
	WechatNumber          Field[string] `json:"wechat_number"`
}
