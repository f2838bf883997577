package portal

// Markup of portal.stva.zh.ch (ecari dispoweb). Everything coupled to the
// site's HTML lives here.
const (
	logoutMarkerCSS = `img[title="Logout"]`

	loginHeadingXPath  = `//h2[contains(normalize-space(.), "Login")]`
	holderInputCSS     = `input#candidateId`
	birthdateInputCSS  = `input[placeholder="12.09.1985"]`
	loginButtonXPath   = `//button[contains(normalize-space(.), "Login")]`
	selectionHeading   = "Neuer Termin"
	selectionHeadXPath = `//h2[contains(normalize-space(.), "Neuer Termin")]`
	selectText         = "Auswählen"
	selectExactXPath   = `//*[normalize-space(text())="Auswählen"]`
	selectCellXPath    = `(//td[contains(normalize-space(.), "Auswählen")])[1]`

	locationSelectCSS = `select#lieu`
	nextWeekXPath     = `//button[contains(normalize-space(.), ">")]`

	dayColumnCSS   = `#jour`
	dayNameCSS     = `#jour h2`
	dayDateCSS     = `#jour h3`
	noSlotsText    = "Keine Termine frei"
	slotButtonsCSS = `.hour button:not([disabled])`
)
