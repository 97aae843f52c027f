package report

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/SteelMorgan/access-log-report/internal/domain"
)

// Checksum calculates SHA256 of the ordered report rows.
// Two runs with identical output produce the same checksum.
func Checksum(rows []domain.ReportRow) string {
	h := sha256.New()

	for _, row := range rows {
		fmt.Fprintf(h, "%s|", row.Group)
		fmt.Fprintf(h, "%d|", row.Total)
		fmt.Fprintf(h, "%s\n", strconv.FormatFloat(row.AvgResponseTime, 'f', -1, 64))
	}

	return hex.EncodeToString(h.Sum(nil))
}
