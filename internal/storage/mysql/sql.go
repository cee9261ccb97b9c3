package mysql

const upsertUserSQL = `
INSERT INTO users (username, password_hash)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE
  password_hash = VALUES(password_hash),
  updated_at    = CURRENT_TIMESTAMP
`

const getUserSQL = `
SELECT password_hash FROM users WHERE username = ?
`
