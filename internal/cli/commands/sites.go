package commands

import (
	"context"
	"fmt"
	"io"

	"couponClipper/internal/cli/ui"
	"couponClipper/internal/config"
	"couponClipper/internal/database"
)

// SitesHandler выводит каталог сайтов
type SitesHandler struct {
	catalog *config.Catalog
	store   database.StatsRepository
	out     io.Writer
}

func NewSitesHandler(catalog *config.Catalog, store database.StatsRepository, out io.Writer) *SitesHandler {
	return &SitesHandler{
		catalog: catalog,
		store:   store,
		out:     out,
	}
}

// List печатает нумерованный список. Последний сайт помечен звездочкой.
func (h *SitesHandler) List(ctx context.Context) {
	last := ""
	if h.store != nil {
		last, _ = h.store.LastSite(ctx)
	}

	fmt.Fprintln(h.out, "\n"+ui.ColorBold+ui.IconList+" Сайты:"+ui.ColorReset)
	for i, s := range h.catalog.Sites() {
		mark := " "
		if s.Key == last {
			mark = ui.ColorYellow + "*" + ui.ColorReset
		}
		rapid := ""
		if s.SiteSettings.RapidModeCompatible {
			rapid = ui.ColorCyan + " [rapid]" + ui.ColorReset
		}
		fmt.Fprintf(h.out, " %s%2d. "+ui.ColorGreen+"%-10s"+ui.ColorReset+" %s%s\n", mark, i+1, s.Key, s.DisplayName(), rapid)
		fmt.Fprintf(h.out, "      "+ui.ColorGray+"%s"+ui.ColorReset+"\n", s.URL)
	}
	fmt.Fprintln(h.out)
}
