package domain

// ClerkClientResponse is the body of GET /v1/client on the Clerk frontend API
type ClerkClientResponse struct {
	Response struct {
		Sessions []ClerkSession `json:"sessions"`
	} `json:"response"`
}

// ClerkSession is one active session of the Clerk client
type ClerkSession struct {
	ID             string         `json:"id"`
	Status         string         `json:"status"`
	User           ClerkUser      `json:"user"`
	PublicUserData PublicUserData `json:"public_user_data"`
}

type ClerkUser struct {
	ID             string              `json:"id"`
	ImageURL       string              `json:"image_url"`
	EmailAddresses []ClerkEmailAddress `json:"email_addresses"`
	Web3Wallets    []ClerkWeb3Wallet   `json:"web3_wallets"`
}

type ClerkEmailAddress struct {
	EmailAddress string `json:"email_address"`
}

type ClerkWeb3Wallet struct {
	Web3Wallet string `json:"web3_wallet"`
}

type PublicUserData struct {
	Identifier string `json:"identifier"`
	FirstName  string `json:"first_name"`
	HasImage   bool   `json:"has_image"`
	ImageURL   string `json:"image_url"`
}

// FirstSession returns the first active session, or nil when there is none
func (r *ClerkClientResponse) FirstSession() *ClerkSession {
	if r == nil || len(r.Response.Sessions) == 0 {
		return nil
	}
	return &r.Response.Sessions[0]
}

// PrimaryEmail is the first email address on the user, used by the popup handshake
func (s *ClerkSession) PrimaryEmail() string {
	if len(s.User.EmailAddresses) == 0 {
		return ""
	}
	return s.User.EmailAddresses[0].EmailAddress
}

// NameExtractor pulls one candidate display name out of a session
type NameExtractor func(*ClerkSession) string

// DisplayNameExtractors are tried in order; the first non-empty result wins
var DisplayNameExtractors = []NameExtractor{
	func(s *ClerkSession) string { return s.PublicUserData.Identifier },
	func(s *ClerkSession) string { return s.PublicUserData.FirstName },
	func(s *ClerkSession) string {
		if len(s.User.Web3Wallets) == 0 {
			return ""
		}
		return s.User.Web3Wallets[0].Web3Wallet
	},
}

// FirstNonEmpty runs the extractors in order and returns the first non-empty value
func FirstNonEmpty(s *ClerkSession, extractors []NameExtractor) string {
	for _, extract := range extractors {
		if v := extract(s); v != "" {
			return v
		}
	}
	return ""
}

// DisplayName derives the account name shown after reconciliation
func (s *ClerkSession) DisplayName() string {
	return FirstNonEmpty(s, DisplayNameExtractors)
}

// Avatar returns the avatar URL only when the provider reports an image
func (s *ClerkSession) Avatar() string {
	if !s.PublicUserData.HasImage {
		return ""
	}
	return s.PublicUserData.ImageURL
}
