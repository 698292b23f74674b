package scrape

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"deepresearch/internal/logging"
)

// Rotation pools for fingerprint randomization. One entry of each is picked
// per scraper so all pages in a session present a consistent identity.
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:124.0) Gecko/20100101 Firefox/124.0",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	}
	locales   = []string{"en-US", "en-GB", "en-CA"}
	timezones = []string{"America/New_York", "Europe/London", "Asia/Tokyo"}
)

// stealthScript overrides the navigator surface automation detectors probe:
// webdriver flag, languages, plugins array, window.chrome, and the WebGL
// vendor strings.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {
	get: () => undefined
});

Object.defineProperty(navigator, 'languages', {
	get: () => ['en-US', 'en', 'es']
});

Object.defineProperty(navigator, 'plugins', {
	get: () => {
		return {
			length: 4,
			item: function(index) { return this[index]; },
			refresh: function() {},
			0: { name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer', description: 'Portable Document Format' },
			1: { name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai', description: 'Portable Document Format' },
			2: { name: 'Native Client', filename: 'internal-nacl-plugin', description: '' },
			3: { name: 'Widevine Content Decryption Module', filename: 'widevinecdmadapter.dll', description: 'Enables Widevine licenses for playback of HTML audio/video content.' }
		};
	}
});

window.chrome = {
	runtime: { connect: () => {}, sendMessage: () => {} },
	app: { isInstalled: false },
	csi: function(){},
	loadTimes: function(){}
};

const getParameter = WebGLRenderingContext.prototype.getParameter;
WebGLRenderingContext.prototype.getParameter = function(parameter) {
	if (parameter === 37445) { return 'Intel Inc.'; }
	if (parameter === 37446) { return 'Intel Iris Pro Graphics'; }
	return getParameter.call(this, parameter);
};
`

// BrowserConfig configures the headless browser scraper.
type BrowserConfig struct {
	Headless          bool
	NavigationTimeout time.Duration
	UserAgent         string // empty = randomized per scraper
}

// DefaultBrowserConfig returns sensible defaults.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:          true,
		NavigationTimeout: 30 * time.Second,
	}
}

// BrowserScraper renders pages in headless Chrome via rod and extracts the
// text a human would see. One browser serves all fetches of the scraper's
// lifetime; each fetch gets its own page.
type BrowserScraper struct {
	cfg BrowserConfig

	mu       sync.Mutex
	browser  *rod.Browser
	ua       string
	locale   string
	timezone string
	closed   bool

	closeOnce sync.Once
}

// NewBrowserScraper creates a browser scraper. The browser launches on the
// first Start call, not here.
func NewBrowserScraper(cfg BrowserConfig) *BrowserScraper {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = userAgents[rand.Intn(len(userAgents))]
	}
	return &BrowserScraper{
		cfg:      cfg,
		ua:       ua,
		locale:   locales[rand.Intn(len(locales))],
		timezone: timezones[rand.Intn(len(timezones))],
	}
}

// Start launches Chrome and connects. Idempotent; a live browser is reused.
func (s *BrowserScraper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("scraper is closed")
	}
	if s.browser != nil {
		return nil
	}

	controlURL, err := launcher.New().
		Headless(s.cfg.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-notifications").
		Set("mute-audio").
		Launch()
	if err != nil {
		return fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	s.browser = browser
	logging.Get(logging.CategoryBrowser).Infow("browser started",
		"headless", s.cfg.Headless, "locale", s.locale, "timezone", s.timezone)
	return nil
}

// Fetch renders url in a fresh page and returns its visible text and HTML.
func (s *BrowserScraper) Fetch(ctx context.Context, url string) (*Content, error) {
	s.mu.Lock()
	browser := s.browser
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return nil, errors.New("scraper is closed")
	}
	if browser == nil {
		return nil, errors.New("scraper not started")
	}

	log := logging.Get(logging.CategoryBrowser)

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(s.cfg.NavigationTimeout)

	if _, err := page.EvalOnNewDocument(stealthScript); err != nil {
		log.Debugw("stealth injection failed", "url", url, "error", err)
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      s.ua,
		AcceptLanguage: s.locale,
	}); err != nil {
		log.Debugw("user agent override failed", "url", url, "error", err)
	}
	if err := (proto.EmulationSetTimezoneOverride{TimezoneID: s.timezone}).Call(page); err != nil {
		log.Debugw("timezone override failed", "url", url, "error", err)
	}

	// Capture the document response status while navigating.
	var resp proto.NetworkResponseReceived
	wait := page.WaitEvent(&resp)

	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}
	wait()

	// Best effort: a timeout here means partially loaded content, which is
	// still worth extracting.
	if err := page.WaitLoad(); err != nil {
		log.Debugw("wait load timed out, extracting partial content", "url", url)
	}

	title := ""
	if info, err := page.Info(); err == nil {
		title = info.Title
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("read html %s: %w", url, err)
	}

	// innerText gives only what a human sees: no scripts, hidden elements,
	// or metadata.
	text := ""
	obj, err := page.Eval(`() => document.body.innerText`)
	if err != nil {
		return nil, fmt.Errorf("extract text %s: %w", url, err)
	}
	if obj != nil && !obj.Value.Nil() {
		text = obj.Value.Str()
	}

	status := 0
	if resp.Response != nil {
		status = resp.Response.Status
	}

	log.Debugw("page fetched", "url", url, "status", status, "chars", len(text))

	return &Content{
		URL:        url,
		Text:       text,
		HTML:       html,
		StatusCode: status,
		Metadata:   map[string]string{"title": title},
	}, nil
}

// Close shuts the browser down. Runs the teardown exactly once.
func (s *BrowserScraper) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		browser := s.browser
		s.browser = nil
		s.mu.Unlock()

		if browser != nil {
			err = browser.Close()
		}
		logging.Get(logging.CategoryBrowser).Info("browser closed")
	})
	return err
}
