package sqlledger

import "time"

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
