package user

const sqlListUsers = `
SELECT id, name, email, state, created_at, updated_at
FROM users
ORDER BY created_at DESC, rowid DESC
`

const sqlGetUserByID = `
SELECT id, name, email, state, created_at, updated_at
FROM users
WHERE id = ?
`

const sqlInsertUser = `
INSERT INTO users (id, name, email, state, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
`

const sqlUpdateUser = `
UPDATE users
SET name = ?, email = ?, state = ?, updated_at = ?
WHERE id = ?
`

const sqlDeleteUser = `
DELETE FROM users
WHERE id = ?
RETURNING id, name, email, state, created_at, updated_at
`

const sqlCountUsersByState = `
SELECT state, COUNT(*) AS count
FROM users
GROUP BY state
ORDER BY count DESC, state ASC
`
