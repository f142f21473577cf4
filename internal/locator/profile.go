package locator

import "strings"

// Profile bundles the QuerySpecs and cell-segmentation strategies for one
// family of UI variants. Profiles are registered by name so a new target
// application variant is a new data table, not new code.
type Profile struct {
	Name string `yaml:"name"`

	Rows       QuerySpec `yaml:"rows"`
	HeaderRow  QuerySpec `yaml:"header_row"`
	NextPage   QuerySpec `yaml:"next_page"`
	ShowMore   QuerySpec `yaml:"show_more"`
	CountBadge QuerySpec `yaml:"count_badge"`
	IssuesTab  QuerySpec `yaml:"issues_tab"`
	Busy       QuerySpec `yaml:"busy"`

	// Settings through DialogOK drive the view-settings dialog that decides
	// which columns the table renders. All optional; a profile without them
	// keeps the application's default column set.
	Settings   QuerySpec `yaml:"settings"`
	ColumnsTab QuerySpec `yaml:"columns_tab"`
	SelectAll  QuerySpec `yaml:"select_all"`
	DialogOK   QuerySpec `yaml:"dialog_ok"`

	// HeaderCells and Cells segment a resolved row into cells. Tried in
	// order against the row element; CSS and XPath kinds only.
	HeaderCells []Strategy `yaml:"header_cells"`
	Cells       []Strategy `yaml:"cells"`
}

var registry = map[string]*Profile{}

// Register adds a profile under its lowercased name.
func Register(p *Profile) {
	registry[strings.ToLower(p.Name)] = p
}

// Get returns a registered profile.
func Get(name string) (*Profile, bool) {
	p, ok := registry[strings.ToLower(name)]
	return p, ok
}

func init() {
	Register(fioriProfile())
	Register(genericProfile())
}

// fioriProfile targets SAP Fiori / UI5 work-center style applications. The
// selector lists mirror the class vocabulary those UIs have shipped across
// releases; variants are handled by extending these lists.
func fioriProfile() *Profile {
	return &Profile{
		Name: "fiori",
		Rows: QuerySpec{
			Target: "issue rows",
			Strategies: []Strategy{
				{CSS, "table.sapMListTbl > tbody > tr:not(.sapMListTblHeader):not(.sapMListTblHeaderRow)"},
				{CSS, ".sapMList li.sapMLIB"},
				{CSS, ".sapMListItems > .sapMListItem"},
				{XPath, "//div[@role='row'][not(contains(@class, 'Header'))]"},
				{CSS, ".sapUiTable tr.sapUiTableRow"},
				{CSS, ".sapMLIB-CTX"},
				{CSS, ".sapMObjectListItem"},
				{Script, rowMarkScript},
			},
		},
		HeaderRow: QuerySpec{
			Target: "header row",
			Strategies: []Strategy{
				{CSS, "tr.sapMListTblHeader"},
				{XPath, "//div[@role='columnheader']/parent::div[@role='row']"},
				{XPath, "//th[contains(@class, 'sapMListTblHeaderCell')]/.."},
				{CSS, "thead tr"},
			},
		},
		NextPage: QuerySpec{
			Target: "next page control",
			Strategies: []Strategy{
				{CSS, ".sapMPaginatorButton--next"},
				{XPath, "//button[contains(@aria-label, 'Next') or contains(@title, 'Next')]"},
				{Text, "Next"},
			},
		},
		ShowMore: QuerySpec{
			Target: "show more control",
			Strategies: []Strategy{
				{CSS, ".sapMListShowMoreButton"},
				{CSS, "button.sapUiTableMoreBtn"},
				{CSS, ".sapMGrowingListTrigger"},
				{XPath, "//button[contains(normalize-space(.), 'More')]"},
			},
		},
		CountBadge: QuerySpec{
			Target: "issue count badge",
			Strategies: []Strategy{
				{XPath, "//div[contains(text(), 'Issues') and contains(text(), '(')]"},
				{CSS, ".sapMITBCount"},
			},
		},
		IssuesTab: QuerySpec{
			Target: "issues tab",
			Strategies: []Strategy{
				{XPath, "//li[@role='tab']//div[contains(text(), 'Issues')]"},
				{Text, "Issues"},
			},
		},
		Busy: QuerySpec{
			Target: "busy indicator",
			Strategies: []Strategy{
				{CSS, ".sapUiLocalBusyIndicator"},
				{CSS, ".sapMBusyIndicator"},
			},
		},
		Settings: QuerySpec{
			Target: "view settings control",
			Strategies: []Strategy{
				{XPath, "//span[contains(@class, 'sapUiIcon') and contains(@data-sap-ui, 'action-settings')]/ancestor::button"},
				{XPath, "//button[contains(@id, 'settings')]"},
				{XPath, "//button[@title='Settings' or contains(@aria-label, 'Settings')]"},
			},
		},
		ColumnsTab: QuerySpec{
			Target: "select-columns tab",
			Strategies: []Strategy{
				{XPath, "//button[contains(@title, 'Column') or contains(@aria-label, 'Column')]"},
				{XPath, "//span[contains(@class, 'sapUiIcon') and contains(@data-sap-ui, 'column')]/ancestor::button"},
				{XPath, "(//div[contains(@class, 'sapMDialogTitle')]/following-sibling::div//button)[3]"},
			},
		},
		SelectAll: QuerySpec{
			Target: "select-all columns toggle",
			Strategies: []Strategy{
				{XPath, "//div[normalize-space(text())='Select All']/preceding-sibling::div//input[@type='checkbox']"},
				{XPath, "//span[normalize-space(text())='Select All']/preceding-sibling::span//input[@type='checkbox']"},
				{XPath, "(//div[contains(@class, 'sapMDialog')]//input[@type='checkbox'])[1]"},
				{Text, "Select All"},
			},
		},
		DialogOK: QuerySpec{
			Target: "dialog confirm button",
			Strategies: []Strategy{
				{XPath, "//button[contains(@class, 'sapMDialogOkButton')]"},
				{XPath, "//div[contains(@class, 'sapMDialogFooter')]//button[contains(normalize-space(.), 'OK')]"},
				{XPath, "//button[@title='OK' or @aria-label='OK']"},
			},
		},
		HeaderCells: []Strategy{
			{CSS, "th"},
			{XPath, ".//div[@role='columnheader']"},
			{CSS, ".sapMListTblHeaderCell"},
		},
		Cells: []Strategy{
			{CSS, "td"},
			{XPath, ".//div[@role='gridcell']"},
			{XPath, ".//*[contains(@class, 'cell') or contains(@class, 'Cell')]"},
			{XPath, "./div[not(contains(@class, 'sapUiNoContentPadding'))]"},
		},
	}
}

// genericProfile is the fallback for plain HTML tables and unknown UIs.
func genericProfile() *Profile {
	return &Profile{
		Name: "generic",
		Rows: QuerySpec{
			Target: "table rows",
			Strategies: []Strategy{
				{CSS, "table tbody tr"},
				{XPath, "//div[@role='row'][not(.//div[@role='columnheader'])]"},
				{CSS, "ul.list > li"},
				{Script, rowMarkScript},
			},
		},
		HeaderRow: QuerySpec{
			Target: "header row",
			Strategies: []Strategy{
				{CSS, "table thead tr"},
				{XPath, "//div[@role='columnheader']/parent::*"},
			},
		},
		NextPage: QuerySpec{
			Target: "next page control",
			Strategies: []Strategy{
				{CSS, ".pagination__next"},
				{XPath, "//a[contains(normalize-space(.), 'Next')] | //button[contains(normalize-space(.), 'Next')]"},
			},
		},
		ShowMore: QuerySpec{
			Target: "show more control",
			Strategies: []Strategy{
				{XPath, "//button[contains(normalize-space(.), 'Show more') or contains(normalize-space(.), 'Load more')]"},
				{CSS, ".load-more, .show-more"},
			},
		},
		CountBadge: QuerySpec{
			Target: "result count caption",
			Strategies: []Strategy{
				{XPath, "//*[contains(text(), 'of') and contains(text(), 'results')]"},
				{CSS, ".result-count"},
			},
		},
		IssuesTab: QuerySpec{},
		Busy: QuerySpec{
			Target: "busy indicator",
			Strategies: []Strategy{
				{CSS, ".loading, .spinner, [aria-busy='true']"},
			},
		},
		HeaderCells: []Strategy{
			{CSS, "th"},
			{XPath, ".//div[@role='columnheader']"},
		},
		Cells: []Strategy{
			{CSS, "td"},
			{XPath, ".//div[@role='gridcell']"},
			{XPath, "./div"},
		},
	}
}

// rowMarkScript is the scripted last-resort row finder: it looks for the
// densest repeated sibling group that smells like a data list, tags the
// first entry and reports whether anything was found. The resolver then
// re-acquires tagged nodes by attribute.
const rowMarkScript = `() => {
	const groups = new Map();
	document.querySelectorAll('tr, li, [role="row"], div').forEach((el) => {
		if (!el.parentElement || !el.innerText || el.innerText.trim().length < 10) return;
		if (el.childElementCount < 2) return;
		const key = el.parentElement.tagName + ':' + el.tagName + ':' + el.className;
		groups.set(key, (groups.get(key) || []).concat([el]));
	});
	let best = null;
	for (const els of groups.values()) {
		if (els.length >= 3 && (!best || els.length > best.length)) best = els;
	}
	if (!best) return false;
	best.forEach((el) => el.setAttribute('data-issuex-hit', '1'));
	return true;
}`
