package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Стратегии поиска кнопок
const (
	LocatorStandard = "standard"
	LocatorWeis     = "weis"
	LocatorClipText = "clip_text"
)

// Стратегии клика
const (
	ClickStandard = "standard"
	ClickEnhanced = "enhanced"
)

// Site описывает один сайт магазина: где искать кнопки купонов и как
// распознавать CAPTCHA и rate limit. Селекторы в строках разделяются ", ".
type Site struct {
	Key                  string       `yaml:"key" json:"key"`
	Name                 string       `yaml:"name" json:"name"`
	URL                  string       `yaml:"url" json:"url"`
	CouponButtonSelector string       `yaml:"coupon_button_selector" json:"coupon_button_selector"`
	ClippedIndicator     string       `yaml:"coupon_clipped_indicator" json:"coupon_clipped_indicator"`
	LoadMoreSelector     string       `yaml:"load_more_button_selector" json:"load_more_button_selector"`
	CaptchaIndicators    []string     `yaml:"captcha_indicators" json:"captcha_indicators"`
	RateLimitIndicators  []string     `yaml:"rate_limit_indicators" json:"rate_limit_indicators"`
	Locator              string       `yaml:"locator" json:"locator"`
	Click                string       `yaml:"click" json:"click"`
	AskRateLimitMode     bool         `yaml:"ask_rate_limit_mode" json:"ask_rate_limit_mode"`
	SiteSettings         SiteSettings `yaml:"site_specific_settings" json:"site_specific_settings"`
}

// SiteSettings хранит переопределения задержек в секундах, как в yaml.
type SiteSettings struct {
	RapidModeCompatible bool     `yaml:"rapid_mode_compatible" json:"rapid_mode_compatible"`
	MinDelayOverride    *float64 `yaml:"min_delay_override" json:"min_delay_override,omitempty"`
	MaxDelayOverride    *float64 `yaml:"max_delay_override" json:"max_delay_override,omitempty"`
}

func (s SiteSettings) MinDelay() (time.Duration, bool) {
	if s.MinDelayOverride == nil {
		return 0, false
	}
	return seconds(*s.MinDelayOverride), true
}

func (s SiteSettings) MaxDelay() (time.Duration, bool) {
	if s.MaxDelayOverride == nil {
		return 0, false
	}
	return seconds(*s.MaxDelayOverride), true
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// DisplayName возвращает имя сайта для меню.
func (s Site) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Key
}

// Catalog - упорядоченный список сайтов. Порядок важен для меню выбора.
type Catalog struct {
	sites []Site
}

func NewCatalog(sites ...Site) *Catalog {
	c := &Catalog{}
	for _, s := range sites {
		c.put(s)
	}
	return c
}

func (c *Catalog) put(s Site) {
	for i := range c.sites {
		if c.sites[i].Key == s.Key {
			c.sites[i] = s
			return
		}
	}
	c.sites = append(c.sites, s)
}

func (c *Catalog) Get(key string) (Site, bool) {
	for _, s := range c.sites {
		if s.Key == key {
			return s, true
		}
	}
	return Site{}, false
}

func (c *Catalog) Sites() []Site {
	out := make([]Site, len(c.sites))
	copy(out, c.sites)
	return out
}

func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.sites))
	for i, s := range c.sites {
		keys[i] = s.Key
	}
	return keys
}

// Resolve принимает ключ сайта или его номер в меню (с единицы).
func (c *Catalog) Resolve(ref string) (Site, bool) {
	ref = strings.TrimSpace(ref)
	if s, ok := c.Get(ref); ok {
		return s, true
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(c.sites) {
		return c.sites[n-1], true
	}
	return Site{}, false
}

type catalogFile struct {
	Sites []yaml.Node `yaml:"sites"`
}

// LoadCatalog возвращает встроенный каталог, дополненный файлом path.
// Записи с существующим ключом накладываются поверх встроенных полей,
// новые ключи добавляются в конец. Отсутствующий файл не ошибка.
func LoadCatalog(path string) (*Catalog, error) {
	catalog := DefaultCatalog()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return catalog, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения каталога сайтов: %w", err)
	}

	if err := catalog.Merge(data); err != nil {
		return nil, fmt.Errorf("ошибка разбора %s: %w", path, err)
	}
	return catalog, nil
}

// Merge накладывает yaml-документ вида `sites: [...]` на каталог.
func (c *Catalog) Merge(data []byte) error {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}

	for i := range file.Sites {
		node := &file.Sites[i]

		var head struct {
			Key string `yaml:"key"`
		}
		if err := node.Decode(&head); err != nil {
			return err
		}
		if head.Key == "" {
			return fmt.Errorf("сайт #%d без ключа", i+1)
		}

		site, ok := c.Get(head.Key)
		if !ok {
			site = Site{Locator: LocatorStandard, Click: ClickStandard}
		}
		if err := node.Decode(&site); err != nil {
			return fmt.Errorf("сайт %s: %w", head.Key, err)
		}
		if site.URL == "" {
			return fmt.Errorf("сайт %s без url", head.Key)
		}
		c.put(site)
	}
	return nil
}

func commonCaptchaIndicators(extra ...string) []string {
	return append([]string{
		"iframe[title*='recaptcha']",
		"iframe[src*='recaptcha']",
		"iframe[src*='captcha']",
		"iframe[src*='cloudflare']",
	}, extra...)
}

func commonRateLimitIndicators() []string {
	return []string{
		"Too many requests",
		"Please try again later",
	}
}

func float(v float64) *float64 {
	return &v
}

// DefaultCatalog - шесть поддерживаемых сайтов.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Site{
			Key:                  "foodlion",
			Name:                 "Food Lion",
			URL:                  "https://foodlion.com/savings/coupons/browse",
			CouponButtonSelector: ".kds-Button--primary",
			ClippedIndicator:     ".kds-Button--secondary",
			LoadMoreSelector:     "button.kds-Load-More, button.load-more, button:contains('Load More')",
			CaptchaIndicators:    commonCaptchaIndicators(),
			RateLimitIndicators:  commonRateLimitIndicators(),
			Locator:              LocatorStandard,
			Click:                ClickStandard,
		},
		Site{
			Key:                  "safeway",
			Name:                 "Safeway",
			URL:                  "https://www.safeway.com/foru/coupons-deals.html",
			CouponButtonSelector: "button.btn.btn-default.btn-block",
			ClippedIndicator:     "button.btn-tag-primary.disabled",
			LoadMoreSelector:     ".load-more-btn, button.load-more, #loadMoreButton",
			CaptchaIndicators:    commonCaptchaIndicators(),
			RateLimitIndicators:  commonRateLimitIndicators(),
			Locator:              LocatorStandard,
			Click:                ClickStandard,
		},
		Site{
			Key:                  "weis",
			Name:                 "Weis Markets",
			URL:                  "https://www.weismarkets.com/coupons/",
			CouponButtonSelector: ".btn-load-more, .btn-clip, button.add-coupon, .coupon-btn:not(.added), .coupon-item__add, [data-testid='add-coupon']",
			ClippedIndicator:     ".btn-clip.added, .coupon-btn.added, .coupon-item__added, [data-testid='added-coupon']",
			LoadMoreSelector:     ".btn-load-more, .load-more-coupons, button:contains('Load More')",
			CaptchaIndicators:    commonCaptchaIndicators("#challenge-running", "#challenge-form", ".cf-browser-verification"),
			// у Weis общие фразы дают ложные срабатывания
			RateLimitIndicators: []string{
				"You are being rate limited",
				"Too many requests in a short time",
				"Rate limit exceeded",
			},
			Locator:          LocatorWeis,
			Click:            ClickEnhanced,
			AskRateLimitMode: true,
		},
		Site{
			Key:                  "giant",
			Name:                 "Giant Food",
			URL:                  "https://giantfood.com/savings/coupons/browse/",
			CouponButtonSelector: "button.coupon-clip-btn:not(.is-clipped)",
			ClippedIndicator:     "button.coupon-clip-btn.is-clipped",
			LoadMoreSelector:     ".load-more, #load-more, button.show-more, button:contains('Show More')",
			CaptchaIndicators:    commonCaptchaIndicators(),
			RateLimitIndicators:  commonRateLimitIndicators(),
			Locator:              LocatorStandard,
			Click:                ClickStandard,
		},
		Site{
			Key:                  "harris_teeter",
			Name:                 "Harris Teeter",
			URL:                  "https://www.harristeeter.com/savings/cl/coupons/",
			CouponButtonSelector: "button:contains('Clip'), button.kds-Button--primary:not([disabled]):not(:has-text('Unclip'))",
			ClippedIndicator:     "button:contains('Unclip'), button.kds-Button--primary[disabled]",
			LoadMoreSelector:     "button.kds-Load-More, button.load-more, button:contains('Load More')",
			CaptchaIndicators:    commonCaptchaIndicators("div.g-recaptcha"),
			RateLimitIndicators:  commonRateLimitIndicators(),
			Locator:              LocatorClipText,
			Click:                ClickEnhanced,
			SiteSettings: SiteSettings{
				RapidModeCompatible: true,
				MinDelayOverride:    float(0.1),
				MaxDelayOverride:    float(0.3),
			},
		},
		Site{
			Key:                  "walmart",
			Name:                 "Walmart",
			URL:                  "https://www.walmart.com/offer/all-offers",
			CouponButtonSelector: "button:contains('Get this offer'), button.button--primary",
			ClippedIndicator:     "button:contains('Offer claimed'), button.button--primary[disabled]",
			LoadMoreSelector:     "button.load-more-button, button.show-more, button:contains('Load More')",
			CaptchaIndicators:    commonCaptchaIndicators("iframe[title*='Human verification challenge']"),
			RateLimitIndicators:  commonRateLimitIndicators(),
			Locator:              LocatorStandard,
			Click:                ClickStandard,
		},
	)
}
