// Package keys builds the composite index keys for stat items and the
// partition/sort-prefix pairs used to query them.
//
// Every key is a sequence of labelled segments joined by '#'. Values are
// written through scorecodec so that the string order of a sort key follows
// the numeric order of the score.
package keys

import (
	"strconv"
	"strings"

	"github.com/okian/statboard/internal/domain/model"
	"github.com/okian/statboard/internal/domain/scorecodec"
)

// Key attribute names.
const (
	AttrPK     = "PK"
	AttrSK     = "SK"
	AttrLSISK  = "LSI-SK"
	AttrGSI1PK = "GSI1-PK"
	AttrGSI1SK = "GSI1-SK"
	AttrGSI2PK = "GSI2-PK"
	AttrGSI2SK = "GSI2-SK"
)

// Data attribute names.
const (
	AttrUser      = "User"
	AttrGame      = "Game"
	AttrStat      = "Stat"
	AttrValue     = "Value"
	AttrDay       = "Day"
	AttrTimestamp = "Timestamp"
)

// Index names a key space and the attribute pair that addresses it.
type Index struct {
	Name          string // empty for the table's primary index
	PartitionAttr string
	SortAttr      string
}

// IsPrimary reports whether ix is the table's own key.
func (ix Index) IsPrimary() bool { return ix.Name == "" }

func (ix Index) String() string {
	if ix.IsPrimary() {
		return "primary"
	}
	return ix.Name
}

var (
	Primary = Index{PartitionAttr: AttrPK, SortAttr: AttrSK}
	LSI     = Index{Name: "LSI", PartitionAttr: AttrPK, SortAttr: AttrLSISK}
	GSI1    = Index{Name: "GSI1", PartitionAttr: AttrGSI1PK, SortAttr: AttrGSI1SK}
	GSI2    = Index{Name: "GSI2", PartitionAttr: AttrGSI2PK, SortAttr: AttrGSI2SK}
)

// Indexes lists every key space in declaration order.
func Indexes() []Index { return []Index{Primary, LSI, GSI1, GSI2} }

// Separator joins key segments.
const Separator = "#"

const sep = Separator

func join(parts ...string) string { return strings.Join(parts, sep) }

func day(d uint64) string { return strconv.FormatUint(d, 10) }

// User is the partition key of the primary index and the LSI.
func User(user string) string { return join("User", user) }

// GameStat is the partition key of both global indexes.
func GameStat(game, stat string) string { return join("Game", game, "Stat", stat) }

// UserDailyPrefix selects one user's values for a game, day and stat.
func UserDailyPrefix(game string, d uint64, stat string) string {
	return join("Game", game, "Day", day(d), "Stat", stat)
}

// UserPrefix selects one user's values for a game and stat on the LSI.
func UserPrefix(game, stat string) string { return GameStat(game, stat) }

// DayPrefix selects one day on GSI1.
func DayPrefix(d uint64) string { return join("Day", day(d)) }

// ValuePrefix selects every value on GSI2.
const ValuePrefix = "Value" + sep

// Keys holds every key attribute of one stat item.
type Keys struct {
	PK     string
	SK     string
	LSISK  string
	GSI1PK string
	GSI1SK string
	GSI2PK string
	GSI2SK string
}

// For derives the keys of s. The result depends only on the fields of s.
func For(s model.Stat) Keys {
	tok := scorecodec.Token(s.Value)
	ts := strconv.FormatUint(s.AddedTimestamp, 10)
	gs := GameStat(s.Game, s.Stat)
	return Keys{
		PK:     User(s.User),
		SK:     join(UserDailyPrefix(s.Game, s.Day, s.Stat), "Value", tok, "Timestamp", ts),
		LSISK:  join(gs, "Value", tok),
		GSI1PK: gs,
		GSI1SK: join(DayPrefix(s.Day), "Value", tok, "Timestamp", ts),
		GSI2PK: gs,
		GSI2SK: join("Value", tok, "Timestamp", ts),
	}
}

// Attributes returns the keys by attribute name.
func (k Keys) Attributes() map[string]string {
	return map[string]string{
		AttrPK:     k.PK,
		AttrSK:     k.SK,
		AttrLSISK:  k.LSISK,
		AttrGSI1PK: k.GSI1PK,
		AttrGSI1SK: k.GSI1SK,
		AttrGSI2PK: k.GSI2PK,
		AttrGSI2SK: k.GSI2SK,
	}
}
