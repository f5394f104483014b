package dynamo

// DynamoDB attribute and index names shared by the repositories and Bootstrap.
const (
	fieldToken       = "token"
	fieldUserID      = "user_id"
	fieldEmail       = "email"
	fieldPhone       = "phone"
	fieldExpiresAt   = "expires_at" // epoch seconds, table TTL attribute
	fieldExpiresAtMs = "expires_at_ms"
	fieldCreatedAtNs = "created_at_ns"

	indexUserCreated = "user_id-created_at_ns-index"
	indexEmail       = "email-index"
	indexPhone       = "phone-index"
)
