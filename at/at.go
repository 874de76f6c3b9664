package at

const (
	// Terminal Control
	CRLF     = "\r\n"
	Prompt   = "> "
	CtrlZ    = "\x1a"
	Download = "DOWNLOAD"

	// Response Codes
	OK         = "OK"
	ERROR      = "ERROR"
	NoCarrier  = "NO CARRIER"
	NoDialtone = "NO DIALTONE"
	Busy       = "BUSY"
	NoAnswer   = "NO ANSWER"
	CmeError   = "+CME ERROR:"
	CmsError   = "+CMS ERROR:"

	// SIM states reported by AT+CPIN?
	SimReady = "READY"
	SimPin   = "SIM PIN"
	SimPuk   = "SIM PUK"

	// Command mnemonics. The executor prepends "AT", so CmdPing is the
	// bare attention command.
	CmdPing          = ""
	CmdEchoOff       = "E0"
	CmdModuleModel   = "+CGMM"
	CmdVerboseErrors = "+CMEE=2"
	CmdCregReports   = "+CREG=2"
	CmdCgregReports  = "+CGREG=2"
	CmdSimStatus     = "+CPIN?"
	CmdSignalQuality = "+CSQ"
	CmdSystemInfo    = "+CPSI?"
	CmdOperator      = "+COPS?"
	CmdSimOperator   = "+CSPN?"
	CmdIMEI          = "+CGSN"
	CmdIMSI          = "+CIMI"
	CmdICCID         = "+CCID"
	CmdRegStatus     = "+CREG?"
	CmdContextQuery  = "+CGACT?"
	CmdContextUp     = "+CGACT=1,1"
	CmdContextDown   = "+CGACT=0,1"
	CmdClock         = "+CCLK?"
	CmdAutoTimeZone  = "+CTZU=1"
	CmdTimeZoneRpt   = "+CTZR=1"
	CmdSoftReset     = "+CFUN=1,1"
	CmdTextMode      = "+CMGF=1"
	CmdHTTPInit      = "+HTTPINIT"
	CmdHTTPTerm      = "+HTTPTERM"
	CmdHTTPPost      = "+HTTPACTION=1"
	CmdHTTPRead      = "+HTTPREAD"

	// Response prefixes
	RespCgactActive = "+CGACT: 1,1"
	RespHTTPAction  = "+HTTPACTION:"
	RespHTTPRead    = "+HTTPREAD:"
	RespPing        = "+CIPPING:"

	// URCs (Unsolicited Result Codes)
	UrcNewMsg        = "+CMTI:"
	UrcMessageReport = "+CDSI:"
	UrcTimeZone      = "+CTZV:"
	UrcCall          = "RING"
)

type ResponseType int

const (
	TypeFinal  ResponseType = iota // OK, ERROR
	TypeURC                        // Asynchronous notifications
	TypeData                       // Intermediate command output (+CSQ: ...)
	TypePrompt                     // Payload input prompt ("> ", DOWNLOAD)
)
