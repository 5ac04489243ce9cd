package application

// Canonical field names. Spreadsheet headers are mapped onto these through the
// alias table; everything downstream (normalization, fingerprints, storage)
// keys on the canonical name, never on the original header spelling.
const (
	FieldBrand          = "brand"
	FieldDeviceName     = "deviceName"
	FieldModel          = "model"
	FieldBuild          = "build"
	FieldTAC            = "tac"
	FieldApprovalDate   = "approvalDate"
	FieldScheduleDate   = "scheduleDate"
	FieldLaunchDate     = "launchDate"
	FieldDualSIM        = "dualSim"
	FieldTargetRegion   = "targetRegion"
	FieldTargetCustomer = "targetCustomer"
	FieldTargetSolution = "targetSolution"
	FieldStatus         = "status"
	FieldComments       = "comments"
	FieldTester         = "tester"
	FieldContact        = "contact"
	FieldPriority       = "priority"
	FieldSerialNumber   = "serialNumber"
	FieldIMEI1          = "imei1"
	FieldIMEI2          = "imei2"
	FieldReceivedOn     = "receivedOn"
	FieldReturnedOn     = "returnedOn"
	FieldRemark         = "remark"
	FieldFlow           = "flow"
)

// headerIgnoreList drops helper columns by substring match before alias
// resolution. Sheets authored in Excel tend to carry dropdown sources and
// pandas-style "Unnamed: N" spill columns next to the real data.
var headerIgnoreList = []string{
	"status options",
	"unnamed",
	"do not edit",
	"legend",
}

type fieldAliases struct {
	field   string
	aliases []string
}

// fieldAliasTable maps canonical fields to every accepted header spelling.
// Matching is exact (after trim+lowercase), first match wins; there is
// deliberately no fuzzy matching so a new header variant shows up as an
// unmapped column instead of silently landing in the wrong field.
var fieldAliasTable = []fieldAliases{
	{FieldBrand, []string{"brand", "oem", "manufacturer", "maker"}},
	{FieldDeviceName, []string{"device", "device name", "devices", "name", "marketing name", "commercial name"}},
	{FieldModel, []string{"model", "model name", "model number", "model no", "model no."}},
	{FieldBuild, []string{"build", "build version", "build number", "sw version", "software version"}},
	{FieldTAC, []string{"tac", "tac number", "tac code", "imei tac"}},
	{FieldApprovalDate, []string{"approval date", "approved date", "approval", "date of approval"}},
	{FieldScheduleDate, []string{"schedule date", "scheduled date", "schedule", "planned date", "target date"}},
	{FieldLaunchDate, []string{"launch date", "launch", "release date"}},
	{FieldDualSIM, []string{"dual sim", "dual-sim", "dualsim", "dual sim support", "ds"}},
	{FieldTargetRegion, []string{"region", "target region", "regions", "market", "markets", "country", "countries"}},
	{FieldTargetCustomer, []string{"customer", "target customer", "customers", "operator", "carrier", "client"}},
	{FieldTargetSolution, []string{"solution", "target solution", "solutions", "solution type", "product"}},
	{FieldStatus, []string{"status", "test status", "testing status", "state"}},
	{FieldComments, []string{"comments", "comment", "notes", "note", "observations"}},
	{FieldTester, []string{"tester", "tested by", "test engineer", "engineer"}},
	{FieldContact, []string{"contact", "contact person", "poc", "point of contact"}},
	{FieldPriority, []string{"priority", "prio"}},
	{FieldSerialNumber, []string{"serial", "serial number", "serial no", "sn", "s/n"}},
	{FieldIMEI1, []string{"imei", "imei1", "imei 1"}},
	{FieldIMEI2, []string{"imei2", "imei 2"}},
	{FieldReceivedOn, []string{"received", "received on", "received date", "reception date"}},
	{FieldReturnedOn, []string{"returned", "returned on", "returned date", "return date"}},
	{FieldRemark, []string{"remark", "remarks"}},
	{FieldFlow, []string{"flow", "in/out", "direction", "movement"}},
}

// aliasIndex is the flattened lookup built from fieldAliasTable in table
// order, so duplicate spellings keep first-match-wins semantics.
var aliasIndex = buildAliasIndex()

func buildAliasIndex() map[string]string {
	index := make(map[string]string)
	for _, entry := range fieldAliasTable {
		for _, alias := range entry.aliases {
			if _, exists := index[alias]; !exists {
				index[alias] = entry.field
			}
		}
	}
	return index
}

// regionTypoTable corrects recurring market-name misspellings before title
// casing. Keys are compared against the whole trimmed segment, lowercase.
var regionTypoTable = map[string]string{
	"bhamas":         "Bahamas",
	"bahmas":         "Bahamas",
	"mxico":          "Mexico",
	"mejico":         "Mexico",
	"columbia":       "Colombia",
	"brasil":         "Brazil",
	"carribean":      "Caribbean",
	"dominican rep":  "Dominican Republic",
	"rep dominicana": "Dominican Republic",
	"om":             "Latam Om",
	"latam":          "Latam Om",
	"usa":            "USA",
	"us":             "USA",
	"uk":             "UK",
	"uae":            "UAE",
}
