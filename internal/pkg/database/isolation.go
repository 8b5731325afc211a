package database

import "database/sql"

// Isolation options per operation class. Money-affecting writes use
// SERIALIZABLE; read-only consistency reads use REPEATABLE READ;
// everything else runs at the store default of READ COMMITTED.
var (
	TxReadCommitted = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

	TxRepeatableRead = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

	TxSerializable = &sql.TxOptions{Isolation: sql.LevelSerializable}
)
