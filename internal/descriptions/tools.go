// Package descriptions holds the long-form MCP tool descriptions shown to
// clients.
package descriptions

import "sort"

// Tool names
const (
	ToolExtract  = "packlist_extract"
	ToolValidate = "packlist_validate"
	ToolFind     = "packlist_find"
	ToolList     = "packlist_list"
	ToolGet      = "packlist_get"
	ToolDelete   = "packlist_delete"
	ToolInfo     = "packlist_info"
)

const (
	ExtractDescription = `Extract shipment lines from a packing-list PDF and return them as CSV.

**When to use:** A supplier packing list needs to go into a spreadsheet or an ERP import.

**What it matches:** lines shaped like "PKG.A1 LOT/J7 3.00 PC 10 LB/5 KG". The package and lot tokens keep the segment after their first "." or "/".

**Output columns:** pkg_bundle, Lot/Job Num, Qty Ship, UOM, Net Weight (LB), Net Weight (KG).

**Examples:**
• "Convert inbox/alcoa-0412.pdf to CSV"
• "Preview the lines in load.pdf without keeping a copy" (store=false)

**Best practices:** Run packlist_validate first on files from unknown sources. A document with no matching lines is reported as "No valid data extracted".`

	ValidateDescription = `Check that a file is a readable PDF within the configured size limit.

**When to use:** Before extraction, or to triage a folder of uploads.

**Examples:**
• "Is scans/load-17.pdf a valid PDF?"

**Best practices:** Validation failures are reported in the text result, not as tool errors.`

	FindDescription = `Find PDF files in the configured directory, optionally filtered by name.

**When to use:** The exact file name is unknown.

**Examples:**
• "Find packing lists with 'alcoa' and 'march' in the name"

**Best practices:** Every word of the query must appear in the file name; matching ignores case.`

	ListDescription = `List stored CSV files, newest first.

**When to use:** To find the id of an earlier conversion.`

	GetDescription = `Return a stored CSV file by id.

**When to use:** To re-read an earlier conversion without re-parsing the PDF.`

	DeleteDescription = `Delete a stored CSV file, and its source PDF when one was kept, by id.`

	InfoDescription = `Show server name, version, configured directory, size limit and the available tools.

**When to use:** At the start of a session to learn what this server can do.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	ToolExtract:  ExtractDescription,
	ToolValidate: ValidateDescription,
	ToolFind:     FindDescription,
	ToolList:     ListDescription,
	ToolGet:      GetDescription,
	ToolDelete:   DeleteDescription,
	ToolInfo:     InfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns every tool name in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
