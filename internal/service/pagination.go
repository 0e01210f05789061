package service

// Listing defaults and bounds.
const (
	DefaultPostLimit    = 10
	DefaultCommentLimit = 20
	DefaultFeedLimit    = 12
	MaxLimit            = 100
	// MaxPage keeps (page-1)*limit far from integer overflow.
	MaxPage = 1_000_000
)

// normalizePage clamps page to 1..MaxPage and limit to 1..MaxLimit,
// substituting def for a non-positive limit.
func normalizePage(page, limit, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit <= 0 {
		limit = def
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}
