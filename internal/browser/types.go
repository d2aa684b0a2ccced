package browser

import (
	"context"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Режимы запуска браузера
const (
	ModeProfile = "profile"
	ModeClean   = "clean"
	ModeAttach  = "attach"
)

type Browser interface {
	Launch(ctx context.Context) error
	Page() (Page, error)
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	Alive(ctx context.Context) bool
	Reconnect(ctx context.Context) error
	ClosePopups(ctx context.Context) error
	GetPageSnapshot(ctx context.Context) (*PageSnapshot, error)
	Mode() string
	Close() error
}

// Page - операции над текущей вкладкой, которые нужны клиперу.
type Page interface {
	QueryAll(selector string) ([]Element, error)
	// QueryByText ищет элементы по собственному тексту узла.
	QueryByText(text string, match TextMatch) ([]Element, error)
	Content() (string, error)
	ContentLength() (int, error)
	ScrollHeight() (int, error)
	ScrollTo(y int) error
	MouseClick(x, y float64) error
	Viewport() (ViewportBounds, error)
	URL() string
}

// Element - найденный на странице элемент.
type Element interface {
	// Key - стабильный идентификатор элемента в пределах документа.
	Key() (string, error)
	Text() (string, error)
	TagName() (string, error)
	// Attribute возвращает значение и признак наличия атрибута.
	Attribute(name string) (string, bool, error)
	Matches(selector string) (bool, error)
	IsVisible() (bool, error)
	IsEnabled() (bool, error)
	BoundingBox() (*ViewportBounds, error)
	ScrollIntoView() error
	Click() error
	JSClick() error
	HoverClick() error
	ParentClick() error
	PressEnter() error
}

type PageSnapshot struct {
	URL      string
	Title    string
	Elements []ElementInfo
	Viewport ViewportBounds
}

type ElementInfo struct {
	Tag         string
	Text        string
	Selector    string
	Classes     string
	Visible     bool
	Interactive bool
	InViewport  bool
	Bounds      ViewportBounds
	Role        string
	Label       string
	Priority    int
}

type ViewportBounds struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

type PlaywrightBrowser struct {
	mu            sync.RWMutex
	pw            *playwright.Playwright
	browser       playwright.Browser
	context       playwright.BrowserContext
	page          playwright.Page
	cfg           Config
	popupDetector PopupDetector
}

type Config struct {
	Mode            string
	Headless        bool
	UserDataDir     string
	BrowsersPath    string
	Display         string
	CDPURL          string
	Channel         string
	Timeout         time.Duration
	NavigateTimeout time.Duration
	ActionTimeout   time.Duration
	ClickTimeout    time.Duration
}
