package models

// LinkType distinguishes what a short code points at.
type LinkType string

const (
	LinkTypeRecipe  LinkType = "recipe"
	LinkTypeArticle LinkType = "article"
)

// ShortLink is the record stored per short code.
type ShortLink struct {
	ShortCode string   `json:"shortCode"`
	Naddr     string   `json:"naddr"`
	Type      LinkType `json:"type"`
	CreatedAt int64    `json:"createdAt"`
	CreatedBy string   `json:"createdBy,omitempty"`
	Clicks    int64    `json:"clicks"`
}

type ShortenReq struct {
	Naddr string `json:"naddr"`
	URL   string `json:"url"`
	Slug  string `json:"slug"`
	Type  string `json:"type"`
}

type ShortenRes struct {
	ShortURL string `json:"shortUrl"`
	Code     string `json:"code"`
}

// Stats is the aggregate view served on the trusted-subnet endpoint.
type Stats struct {
	Links int `json:"links"`
	Users int `json:"users"`
}

// InvoiceMetadata correlates a Lightning invoice back to a user.
// Stored under invoice:{receiveRequestId} and hash:{paymentHash}.
type InvoiceMetadata struct {
	Pubkey           string `json:"pubkey"`
	Tier             string `json:"tier"`
	Period           string `json:"period"`
	ReceiveRequestID string `json:"receiveRequestId"`
	PaymentHash      string `json:"paymentHash,omitempty"`
	Nip05Name        string `json:"nip05Name,omitempty"`
	CreatedAt        int64  `json:"createdAt"`
}

type CreateInvoiceReq struct {
	Pubkey    string `json:"pubkey" binding:"required"`
	Tier      string `json:"tier" binding:"required"`
	Period    string `json:"period" binding:"required"`
	Nip05Name string `json:"nip05Name"`
}

type CreateInvoiceRes struct {
	ReceiveRequestID string `json:"receiveRequestId"`
	Invoice          string `json:"invoice"`
	AmountSats       int64  `json:"amountSats"`
}

type VerifyPaymentReq struct {
	ReceiveRequestID string `json:"receiveRequestId" binding:"required"`
}

type CheckoutSessionReq struct {
	Pubkey    string `json:"pubkey" binding:"required"`
	Tier      string `json:"tier" binding:"required"`
	Period    string `json:"period" binding:"required"`
	Nip05Name string `json:"nip05Name"`
}

type CheckoutSessionRes struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type CompletePaymentReq struct {
	SessionID string `json:"sessionId" binding:"required"`
}

// Member is the record posted to the members API on activation.
type Member struct {
	Pubkey    string `json:"pubkey"`
	Tier      string `json:"tier"`
	Period    string `json:"period"`
	ExpiresAt int64  `json:"expiresAt"`
	PaidVia   string `json:"paidVia"`
}

type MembershipState struct {
	Pubkey    string `json:"pubkey"`
	Active    bool   `json:"active"`
	Tier      string `json:"tier,omitempty"`
	ExpiresAt int64  `json:"expiresAt,omitempty"`
}

type ClaimNIP05Req struct {
	Name   string `json:"name" binding:"required"`
	Pubkey string `json:"pubkey" binding:"required"`
}

// NostrJSON is the NIP-05 .well-known/nostr.json document.
type NostrJSON struct {
	Names  map[string]string   `json:"names"`
	Relays map[string][]string `json:"relays,omitempty"`
}

type GenerateRecipeReq struct {
	Prompt string `json:"prompt" binding:"required"`
}

type GeneratedRecipe struct {
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Ingredients []string `json:"ingredients"`
	Directions  []string `json:"directions"`
}
