package dialects

import (
	"sort"
	"strings"
	"unicode"
)

// dateUnit names what a date-format token renders, independent of dialect.
type dateUnit string

const (
	unitNone        dateUnit = ""
	unitYear4       dateUnit = "year4"
	unitYear2       dateUnit = "year2"
	unitMonth2      dateUnit = "month2"
	unitMonthNum    dateUnit = "month_num"
	unitMonthName   dateUnit = "month_name"
	unitMonthAbbr   dateUnit = "month_abbr"
	unitDay2        dateUnit = "day2"
	unitDayNum      dateUnit = "day_num"
	unitDaySuffix   dateUnit = "day_suffix"
	unitDayOfYear   dateUnit = "day_of_year"
	unitWeekdayName dateUnit = "weekday_name"
	unitWeekdayAbbr dateUnit = "weekday_abbr"
	unitWeekday0    dateUnit = "weekday_sunday0"
	unitWeekday1    dateUnit = "weekday_sunday1"
	unitHour24      dateUnit = "hour24"
	unitHour24Num   dateUnit = "hour24_num"
	unitHour12      dateUnit = "hour12"
	unitHour12Num   dateUnit = "hour12_num"
	unitMinute      dateUnit = "minute"
	unitSecond      dateUnit = "second"
	unitSecondFrac  dateUnit = "second_frac"
	unitMicro       dateUnit = "micro"
	unitMilli       dateUnit = "milli"
	unitAMPM        dateUnit = "ampm"
	unitTime24      dateUnit = "time24"
	unitTime12      dateUnit = "time12"
	unitWeekMon     dateUnit = "week_monday"
	unitWeekSun     dateUnit = "week_sunday"
	unitWeekISO     dateUnit = "week_iso"
	unitWeekPlain   dateUnit = "week_plain"
	unitJulianDay   dateUnit = "julian_day"
	unitJulianFrac  dateUnit = "julian_frac"
	unitUnix        dateUnit = "unix"
)

// dateTokens is one dialect's token vocabulary: parse maps every accepted
// token to its unit, emit maps each unit to the canonical token.
type dateTokens struct {
	parse map[string]dateUnit
	emit  map[dateUnit]string
}

// MySQL DATE_FORMAT tokens.
var mysqlDateTokens = dateTokens{
	parse: map[string]dateUnit{
		"%a": unitWeekdayAbbr, "%b": unitMonthAbbr, "%c": unitMonthNum, "%D": unitDaySuffix,
		"%d": unitDay2, "%e": unitDayNum, "%f": unitMicro, "%H": unitHour24,
		"%h": unitHour12, "%I": unitHour12, "%i": unitMinute, "%j": unitDayOfYear,
		"%k": unitHour24Num, "%l": unitHour12Num, "%M": unitMonthName, "%m": unitMonth2,
		"%p": unitAMPM, "%r": unitTime12, "%S": unitSecond, "%s": unitSecond,
		"%T": unitTime24, "%U": unitWeekSun, "%u": unitWeekMon, "%V": unitNone,
		"%v": unitWeekISO, "%W": unitWeekdayName, "%w": unitWeekday0, "%X": unitNone,
		"%x": unitNone, "%Y": unitYear4, "%y": unitYear2,
	},
	emit: map[dateUnit]string{
		unitWeekdayAbbr: "%a", unitMonthAbbr: "%b", unitMonthNum: "%c", unitDaySuffix: "%D",
		unitDay2: "%d", unitDayNum: "%e", unitMicro: "%f", unitHour24: "%H",
		unitHour12: "%h", unitMinute: "%i", unitDayOfYear: "%j", unitHour24Num: "%k",
		unitHour12Num: "%l", unitMonthName: "%M", unitMonth2: "%m", unitAMPM: "%p",
		unitTime12: "%r", unitSecond: "%S", unitTime24: "%T", unitWeekSun: "%U",
		unitWeekMon: "%u", unitWeekISO: "%v", unitWeekdayName: "%W", unitWeekday0: "%w",
		unitYear4: "%Y", unitYear2: "%y",
	},
}

// PostgreSQL TO_CHAR tokens.
var pgsqlDateTokens = dateTokens{
	parse: map[string]dateUnit{
		"FMHH24": unitHour24Num, "FMHH12": unitHour12Num, "FMMonth": unitMonthName,
		"FMDDth": unitDaySuffix, "FMDay": unitWeekdayName, "FMMM": unitMonthNum,
		"FMDD": unitDayNum, "YYYY": unitYear4, "HH24": unitHour24, "HH12": unitHour12,
		"Month": unitMonthName, "DDD": unitDayOfYear, "Day": unitWeekdayName,
		"Mon": unitMonthAbbr, "Dy": unitWeekdayAbbr, "YY": unitYear2, "MM": unitMonth2,
		"DD": unitDay2, "MI": unitMinute, "SS": unitSecond, "US": unitMicro, "MS": unitMilli,
		"AM": unitAMPM, "PM": unitAMPM, "IW": unitWeekISO, "WW": unitWeekPlain,
		"HH": unitHour12, "D": unitWeekday1, "J": unitJulianDay,
		// Upper and lower case spellings only change the capitalization of names.
		"FMMONTH": unitMonthName, "FMmonth": unitMonthName, "FMDAY": unitWeekdayName,
		"FMday": unitWeekdayName, "MONTH": unitMonthName, "month": unitMonthName,
		"DAY": unitWeekdayName, "day": unitWeekdayName, "MON": unitMonthAbbr,
		"mon": unitMonthAbbr, "DY": unitWeekdayAbbr, "dy": unitWeekdayAbbr,
		"am": unitAMPM, "pm": unitAMPM,
	},
	emit: map[dateUnit]string{
		unitYear4: "YYYY", unitYear2: "YY", unitMonth2: "MM", unitMonthNum: "FMMM",
		unitMonthName: "FMMonth", unitMonthAbbr: "Mon", unitDay2: "DD", unitDayNum: "FMDD",
		unitDaySuffix: "FMDDth", unitDayOfYear: "DDD", unitWeekdayName: "FMDay",
		unitWeekdayAbbr: "Dy", unitWeekday1: "D", unitHour24: "HH24", unitHour24Num: "FMHH24",
		unitHour12: "HH12", unitHour12Num: "FMHH12", unitMinute: "MI", unitSecond: "SS",
		unitMicro: "US", unitMilli: "MS", unitAMPM: "AM", unitTime24: "HH24:MI:SS",
		unitTime12: "HH12:MI:SS AM", unitWeekISO: "IW", unitWeekPlain: "WW",
		unitJulianDay: "J",
	},
}

// SQLite strftime tokens, including the 3.44 additions.
var sqliteDateTokens = dateTokens{
	parse: map[string]dateUnit{
		"%d": unitDay2, "%e": unitDayNum, "%f": unitSecondFrac, "%H": unitHour24,
		"%I": unitHour12, "%j": unitDayOfYear, "%J": unitJulianFrac, "%k": unitHour24Num,
		"%l": unitHour12Num, "%m": unitMonth2, "%M": unitMinute, "%p": unitAMPM,
		"%s": unitUnix, "%S": unitSecond, "%T": unitTime24, "%w": unitWeekday0,
		"%W": unitWeekMon, "%Y": unitYear4, "%y": unitYear2,
	},
	emit: map[dateUnit]string{
		unitDay2: "%d", unitDayNum: "%e", unitSecondFrac: "%f", unitHour24: "%H",
		unitHour12: "%I", unitDayOfYear: "%j", unitJulianFrac: "%J", unitHour24Num: "%k",
		unitHour12Num: "%l", unitMonth2: "%m", unitMinute: "%M", unitAMPM: "%p",
		unitUnix: "%s", unitSecond: "%S", unitTime24: "%T", unitWeekday0: "%w",
		unitWeekMon: "%W", unitYear4: "%Y", unitYear2: "%y",
	},
}

// pgsqlTokenOrder lists PostgreSQL tokens longest first for greedy matching.
var pgsqlTokenOrder = func() []string {
	tokens := make([]string, 0, len(pgsqlDateTokens.parse))
	for t := range pgsqlDateTokens.parse {
		tokens = append(tokens, t)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})
	return tokens
}()

func tokensFor(k Kind) *dateTokens {
	switch k {
	case MySQL:
		return &mysqlDateTokens
	case PgSQL:
		return &pgsqlDateTokens
	case SQLite:
		return &sqliteDateTokens
	}
	return nil
}

// datePart is either a unit or a run of literal text.
type datePart struct {
	unit    dateUnit
	literal string
	isUnit  bool
}

// TranslateDateFormat converts a date format string written with from's tokens
// into the equivalent format for to. Tokens with no equivalent in to become
// empty strings; literal text is carried over.
func TranslateDateFormat(format string, from, to Kind) string {
	if from == to || format == "" {
		return format
	}
	src, dst := tokensFor(from), tokensFor(to)
	if src == nil || dst == nil {
		return format
	}

	var parts []datePart
	if from == PgSQL {
		parts = parsePgsqlFormat(format)
	} else {
		parts = parsePercentFormat(format, src)
	}
	return renderFormat(parts, dst, to)
}

// parsePercentFormat tokenizes MySQL and SQLite style %-formats.
func parsePercentFormat(format string, src *dateTokens) []datePart {
	var parts []datePart
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, datePart{literal: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 >= len(format) {
			lit.WriteByte(c)
			continue
		}
		tok := format[i : i+2]
		i++
		if tok == "%%" {
			lit.WriteByte('%')
			continue
		}
		flush()
		parts = append(parts, datePart{unit: src.parse[tok], isUnit: true})
	}
	flush()
	return parts
}

// parsePgsqlFormat tokenizes TO_CHAR patterns; double-quoted text is literal.
func parsePgsqlFormat(format string) []datePart {
	var parts []datePart
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, datePart{literal: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(format); {
		if format[i] == '"' {
			j := i + 1
			for j < len(format) && format[j] != '"' {
				if format[j] == '\\' && j+1 < len(format) {
					j++
				}
				lit.WriteByte(format[j])
				j++
			}
			i = j + 1
			continue
		}
		matched := false
		for _, tok := range pgsqlTokenOrder {
			if strings.HasPrefix(format[i:], tok) {
				flush()
				parts = append(parts, datePart{unit: pgsqlDateTokens.parse[tok], isUnit: true})
				i += len(tok)
				matched = true
				break
			}
		}
		if !matched {
			lit.WriteByte(format[i])
			i++
		}
	}
	flush()
	return parts
}

func renderFormat(parts []datePart, dst *dateTokens, to Kind) string {
	var sb strings.Builder
	for _, p := range parts {
		if p.isUnit {
			sb.WriteString(dst.emit[p.unit])
			continue
		}
		sb.WriteString(escapeDateLiteral(p.literal, to))
	}
	return sb.String()
}

// escapeDateLiteral makes literal text safe for the target's format syntax.
func escapeDateLiteral(s string, to Kind) string {
	if to != PgSQL {
		return strings.ReplaceAll(s, "%", "%%")
	}
	if !strings.ContainsFunc(s, unicode.IsLetter) {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
