package sqlledger

import (
	"fmt"
	"strconv"
	"strings"
)

type dialect struct {
	driver    string
	schema    string
	forUpdate string
	// ORDER BY expression giving byte-wise plate order
	orderPlate string
	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
	// single writer connection to avoid SQLITE_BUSY
	singleConn bool
}

const checks = `
    CONSTRAINT check_current_charge_non_negative CHECK (current_charge >= 0),
    CONSTRAINT check_total_charge_non_negative CHECK (total_charge >= 0),
    CONSTRAINT check_desired_percentage_less_or_equal_than_hundred CHECK (desired_percentage <= 100),
    CONSTRAINT check_desired_percentage_above_or_equal_than_zero CHECK (desired_percentage >= 0),
    CONSTRAINT check_current_charge_not_higher_than_total_charge CHECK (current_charge <= total_charge),
    CONSTRAINT check_status CHECK (status IN ('occupied', 'retired'))`

var dialects = map[string]dialect{
	"sqlite": {
		driver: "sqlite",
		schema: `CREATE TABLE IF NOT EXISTS vehicles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    plate VARCHAR(20) NOT NULL UNIQUE,
    current_charge INTEGER NOT NULL,
    total_charge INTEGER NOT NULL,
    desired_percentage INTEGER NOT NULL,
    start_time BIGINT NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'occupied',` + checks + `
);`,
		orderPlate: "plate",
		singleConn: true,
	},
	"postgres": {
		driver: "postgres",
		schema: `CREATE TABLE IF NOT EXISTS vehicles (
    id BIGSERIAL PRIMARY KEY,
    plate VARCHAR(20) NOT NULL UNIQUE,
    current_charge INTEGER NOT NULL,
    total_charge INTEGER NOT NULL,
    desired_percentage INTEGER NOT NULL,
    start_time BIGINT NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'occupied',` + checks + `
);`,
		forUpdate:  " FOR UPDATE",
		orderPlate: `plate COLLATE "C"`,
		numbered:   true,
	},
}

func lookupDialect(name string) (dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported ledger driver %q", name)
	}
	return d, nil
}

// rebind rewrites ? placeholders for dialects using numbered parameters.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
