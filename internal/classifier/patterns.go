package classifier

import "regexp"

const (
	unknownConfidence = 0.3
	contextConfidence = 0.6
)

// builtinPatterns is the default table in priority order. Specific abort
// rows sit above the broad transient rows so that, for example, an invalid
// credential message is never mistaken for a retryable 401.
func builtinPatterns() []Pattern {
	return []Pattern{
		{
			MessagePattern: regexp.MustCompile(`(?i)invalid (credentials?|password|username|api[ _-]?key)|wrong password|bad credentials|authentication failed|login failed`),
			Category:       CategoryAuth,
			Abort:          true,
			Confidence:     0.95,
			Description:    "invalid credentials",
		},
		{
			MessagePattern: regexp.MustCompile(`(?i)permission denied|access denied|forbidden|not authori[sz]ed to`),
			StatusCodes:    []int{403},
			Category:       CategoryClient,
			Abort:          true,
			Confidence:     0.9,
			Description:    "permission denied",
		},
		{
			MessagePattern: regexp.MustCompile(`(?i)already (reserved|booked|taken)|no longer available|sold out|fully booked|slot (is )?(unavailable|taken)`),
			StatusCodes:    []int{409, 410},
			Category:       CategoryBusiness,
			Abort:          true,
			Confidence:     0.9,
			Description:    "resource no longer available",
		},
		{
			MessagePattern: regexp.MustCompile(`(?i)payment (failed|declined|rejected)|card (was )?declined|insufficient funds`),
			StatusCodes:    []int{402},
			Category:       CategoryBusiness,
			Abort:          true,
			Confidence:     0.95,
			Description:    "payment failed",
		},
		{
			MessagePattern: regexp.MustCompile(`(?i)rate.?limit|too many requests|quota exceeded|throttl`),
			StatusCodes:    []int{429},
			Category:       CategoryRateLimit,
			Retryable:      true,
			Confidence:     0.95,
			Description:    "rate limited",
		},
		{
			MessagePattern: regexp.MustCompile(`(?i)unauthori[sz]ed|session (expired|invalid)|token (has )?expired|login required|re-?authenticate`),
			StatusCodes:    []int{401, 407},
			Category:       CategoryAuth,
			Retryable:      true,
			Confidence:     0.8,
			Description:    "authentication expired",
		},
		{
			MessagePattern: regexp.MustCompile(`(?i)timed? ?out|deadline exceeded|ETIMEDOUT|ESOCKETTIMEDOUT`),
			StatusCodes:    []int{408, 504},
			Category:       CategoryTimeout,
			Retryable:      true,
			Confidence:     0.9,
			Description:    "operation timed out",
		},
		{
			MessagePattern: regexp.MustCompile(`(?i)internal server error|bad gateway|service unavailable|server error|upstream (connect )?error`),
			StatusMin:      500,
			StatusMax:      599,
			Category:       CategoryServer,
			Retryable:      true,
			Confidence:     0.9,
			Description:    "server error",
		},
		{
			MessagePattern: regexp.MustCompile(`(?i)connection (refused|reset|closed|aborted)|ECONNREFUSED|ECONNRESET|ENOTFOUND|EAI_AGAIN|no such host|network is unreachable|broken pipe|socket hang up|\bEOF\b|net::ERR_(CONNECTION|INTERNET|NAME_NOT_RESOLVED|NETWORK)`),
			Category:       CategoryNetwork,
			Retryable:      true,
			Confidence:     0.85,
			Description:    "network failure",
		},
		{
			MessagePattern: regexp.MustCompile(`(?i)navigat(ion|ing)|net::ERR_|page (crashed|closed)|target (page, context or browser )?(has been )?closed|frame (was |got )?detached|execution context was destroyed|waiting for selector|element not found|no node found`),
			Category:       CategoryNavigation,
			Retryable:      true,
			Confidence:     0.75,
			Description:    "navigation failure",
		},
		{
			MessagePattern: regexp.MustCompile(`(?i)malformed|bad request|invalid (request|input|parameter|argument|json|payload|format)|validation (failed|error)|unprocessable|not found`),
			StatusMin:      400,
			StatusMax:      499,
			Category:       CategoryClient,
			Abort:          true,
			Confidence:     0.85,
			Description:    "client error",
		},
	}
}

// browserDriverFrames are stack fragments that identify a browser automation
// driver.
var browserDriverFrames = regexp.MustCompile(`(?i)playwright|puppeteer|chromedp|go-rod|\brod\b|selenium|webdriver`)
