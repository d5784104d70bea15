package common

// AccessTokenHeaderName is the HTTP header used to carry the access token
// on outbound requests to the remote catalog API.
const AccessTokenHeaderName = "Authorization"

// Logical table names of the local cache and the remote catalog API.
const (
	TableItems  = "items"
	TablePhotos = "photos"
	TableSales  = "sales"
)
