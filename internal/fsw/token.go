package fsw

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultPosition is prepended to bare symbols so they form a complete sign.
const DefaultPosition = "M500x500"

const (
	symbolPattern = `S[123][0-9a-f]{2}[0-5][0-9a-f]`
	coordPattern  = `[0-9]{3}x[0-9]{3}`
)

var (
	bareSymbolRE = regexp.MustCompile(`^` + symbolPattern + coordPattern + `$`)
	signRE       = regexp.MustCompile(`^(A(?:` + symbolPattern + `)+)?([BLMR])(` + coordPattern + `)((?:` + symbolPattern + coordPattern + `)*)$`)
	spatialRE    = regexp.MustCompile(`(` + symbolPattern + `)(` + coordPattern + `)`)
)

// Prepare prefixes bare symbols with DefaultPosition. Tokens that already
// carry a sequence or box marker are returned unchanged.
func Prepare(token string) string {
	if token == "" {
		return token
	}
	switch token[0] {
	case 'A', 'B', 'L', 'M', 'R':
		return token
	}
	return DefaultPosition + token
}

// IsBareSymbol reports whether token is a single positioned symbol.
func IsBareSymbol(token string) bool {
	return bareSymbolRE.MatchString(token)
}

type spatial struct {
	symbol string
	x, y   int
}

// Normalize recenters the symbols of a prepared sign around 500x500 and
// rewrites the box coordinate as the maximum extent.
func Normalize(sign string, metrics *Metrics) (string, error) {
	match := signRE.FindStringSubmatch(sign)
	if match == nil {
		return sign, fmt.Errorf("not a sign: %q", sign)
	}
	sequence, box, spatialText := match[1], match[2], match[4]
	if spatialText == "" {
		return sign, nil
	}

	var spatials []spatial
	for _, m := range spatialRE.FindAllStringSubmatch(spatialText, -1) {
		x, y := parseCoord(m[2])
		spatials = append(spatials, spatial{symbol: m[1], x: x, y: y})
	}

	minX, minY := 1<<30, 1<<30
	maxX, maxY := -1, -1
	for _, s := range spatials {
		size, ok := metrics.SizeOf(s.symbol)
		if !ok {
			return sign, fmt.Errorf("no metrics for symbol %s", s.symbol)
		}
		minX = min(minX, s.x)
		minY = min(minY, s.y)
		maxX = max(maxX, s.x+size.Width)
		maxY = max(maxY, s.y+size.Height)
	}

	offsetX := (minX+maxX)/2 - 500
	offsetY := (minY+maxY)/2 - 500

	var b strings.Builder
	b.WriteString(sequence)
	b.WriteString(box)
	b.WriteString(formatCoord(maxX-offsetX, maxY-offsetY))
	for _, s := range spatials {
		b.WriteString(s.symbol)
		b.WriteString(formatCoord(s.x-offsetX, s.y-offsetY))
	}
	return b.String(), nil
}

func parseCoord(coord string) (int, int) {
	x, _ := strconv.Atoi(coord[:3])
	y, _ := strconv.Atoi(coord[4:])
	return x, y
}

func formatCoord(x, y int) string {
	return fmt.Sprintf("%03dx%03d", x, y)
}
