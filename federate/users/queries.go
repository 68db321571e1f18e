package users

const (
	userColumns = `id, email, password_hash, display_name, picture, linked_providers, created_at, updated_at`

	queryCreate = `
		INSERT INTO users (email, password_hash, display_name, picture, linked_providers)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		RETURNING ` + userColumns

	queryFindByID = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`

	// email is not unique at the storage layer, the oldest account wins
	queryFindByEmail = `
		SELECT ` + userColumns + `
		FROM users
		WHERE lower(email) = $1
		ORDER BY created_at ASC
		LIMIT 1
	`

	queryFindByProvider = `
		SELECT ` + userColumns + `
		FROM users
		WHERE linked_providers ->> $1 = $2
		ORDER BY created_at ASC
		LIMIT 1
	`

	queryUpdate = `
		UPDATE users
		SET email = $1, display_name = $2, picture = $3, linked_providers = $4::jsonb, updated_at = NOW()
		WHERE id = $5
		RETURNING ` + userColumns
)
