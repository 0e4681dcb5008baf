package aggregate

import (
	"testing"

	"github.com/romsan-app/romsan/filesystem"
	"github.com/romsan-app/romsan/source"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Use in-memory filesystem for tests to avoid creating real directories
	filesystem.SetMemMapFs()
}

func descriptorWithPlaceholders(id string, placeholders ...string) *source.SourceDescriptor {
	return &source.SourceDescriptor{
		ID:                id,
		Name:              id,
		Version:           "1.0.0",
		Kind:              source.BackendModule,
		EntryPoint:        id,
		PlaceholderImages: placeholders,
		InstallPath:       "/sources/" + id,
	}
}

func TestMergeGroup(t *testing.T) {
	Convey("mergeGroup", t, func() {
		Convey("Should union regions deduped by code", func() {
			a := hit{
				rom:  &source.Rom{Slug: "super-game", Title: "Super Game", Regions: []source.Region{{Code: "US", Name: "United States"}}},
				desc: descriptorWithPlaceholders("alpha"),
			}
			b := hit{
				rom:  &source.Rom{Slug: "super-game", Title: "Super Game", Regions: []source.Region{{Code: "EU", Name: "Europe"}}},
				desc: descriptorWithPlaceholders("beta"),
			}

			merged := mergeGroup([]hit{a, b})
			So(merged.Regions, ShouldHaveLength, 2)

			Convey("And a duplicate code contributes nothing", func() {
				c := hit{
					rom:  &source.Rom{Slug: "super-game", Regions: []source.Region{{Code: "us", Name: "USA"}}},
					desc: descriptorWithPlaceholders("gamma"),
				}
				merged := mergeGroup([]hit{a, b, c})
				So(merged.Regions, ShouldHaveLength, 2)
			})
		})

		Convey("Should union links deduped by URL", func() {
			a := hit{rom: &source.Rom{Slug: "s", Links: []*source.DownloadLink{
				{URL: "http://x/1.zip"}, {URL: "http://x/2.zip"},
			}}}
			b := hit{rom: &source.Rom{Slug: "s", Links: []*source.DownloadLink{
				{URL: "http://x/2.zip"}, {URL: "http://x/3.zip"},
			}}}

			merged := mergeGroup([]hit{a, b})
			So(merged.Links, ShouldHaveLength, 3)
		})

		Convey("When only one member has a box image", func() {
			withBox := hit{
				rom: &source.Rom{
					Slug:      "super-game",
					CoverURL:  "http://box/cover.jpg",
					CoverURLs: []string{"http://box/cover.jpg", "http://box/screen1.jpg"},
				},
				desc: descriptorWithPlaceholders("boxy", "http://boxy/placeholder.png"),
			}
			withoutBox := hit{
				rom: &source.Rom{
					Slug:      "super-game",
					CoverURLs: []string{"http://nobox/screen1.jpg"},
				},
				desc: descriptorWithPlaceholders("plain", "fallback.png"),
			}

			merged := mergeGroup([]hit{withoutBox, withBox})

			Convey("The box-less source contributes no cover URLs", func() {
				So(merged.CoverURL, ShouldEqual, "http://box/cover.jpg")
				So(merged.CoverURLs, ShouldNotContain, "http://nobox/screen1.jpg")
				So(merged.CoverURLs, ShouldContain, "http://box/cover.jpg")
				So(merged.CoverURLs, ShouldContain, "http://box/screen1.jpg")
			})

			Convey("Placeholders are still appended as a fallback", func() {
				So(merged.CoverURLs, ShouldContain, "http://boxy/placeholder.png")
				So(merged.CoverURLs, ShouldContain, "/sources/plain/fallback.png")
			})
		})

		Convey("When no member has a box image", func() {
			a := hit{
				rom:  &source.Rom{Slug: "s", CoverURLs: []string{"http://a/screen.jpg"}},
				desc: descriptorWithPlaceholders("a", "http://a/placeholder.png"),
			}
			b := hit{
				rom:  &source.Rom{Slug: "s", CoverURLs: []string{"http://b/screen.jpg"}},
				desc: descriptorWithPlaceholders("b", "http://b/placeholder.png"),
			}

			merged := mergeGroup([]hit{a, b})

			Convey("The cover list is rebuilt purely from placeholders", func() {
				So(merged.CoverURL, ShouldBeEmpty)
				So(merged.CoverURLs, ShouldResemble, []string{"http://a/placeholder.png", "http://b/placeholder.png"})
			})
		})

		Convey("Merging is idempotent", func() {
			group := []hit{
				{
					rom:  &source.Rom{Slug: "s", CoverURLs: []string{"http://a/screen.jpg"}},
					desc: descriptorWithPlaceholders("a", "http://a/placeholder.png"),
				},
				{
					rom:  &source.Rom{Slug: "s", CoverURL: "http://b/box.jpg", CoverURLs: []string{"http://b/box.jpg"}},
					desc: descriptorWithPlaceholders("b"),
				},
			}

			once := mergeGroup(group)
			twice := mergeGroup([]hit{{rom: once, desc: descriptorWithPlaceholders("a", "http://a/placeholder.png")}})

			So(twice, ShouldResemble, once)
		})
	})
}

func TestGroupBySlug(t *testing.T) {
	Convey("groupBySlug", t, func() {
		hits := []hit{
			{rom: &source.Rom{Slug: "alpha"}},
			{rom: &source.Rom{Slug: "beta"}},
			{rom: &source.Rom{Slug: "alpha"}},
		}

		groups := groupBySlug(hits)
		So(groups, ShouldHaveLength, 2)
		So(groups[0], ShouldHaveLength, 2)
		So(groups[0][0].rom.Slug, ShouldEqual, "alpha")
		So(groups[1][0].rom.Slug, ShouldEqual, "beta")
	})
}

func TestRegionFilter(t *testing.T) {
	Convey("Defensive region filter", t, func() {
		eu := &source.Rom{Slug: "eu-game", Regions: []source.Region{{Code: "Europe"}}}
		jp := &source.Rom{Slug: "jp-game", Regions: []source.Region{{Code: "JP"}}}

		Convey("Should match aliases case-insensitively", func() {
			So(matchesRegions(eu, []string{"eu"}), ShouldBeTrue)
			So(matchesRegions(eu, []string{"EU"}), ShouldBeTrue)
			So(matchesRegions(jp, []string{"eu"}), ShouldBeFalse)
		})

		Convey("Should match by region name as well as code", func() {
			named := &source.Rom{Regions: []source.Region{{Code: "X1", Name: "Worldwide"}}}
			So(matchesRegions(named, []string{"ww"}), ShouldBeTrue)
		})

		Convey("An empty filter matches everything", func() {
			So(matchesRegions(jp, nil), ShouldBeTrue)
		})

		Convey("filterByRegions drops non-matching entries", func() {
			kept := filterByRegions([]*source.Rom{eu, jp}, []string{"europe"})
			So(kept, ShouldHaveLength, 1)
			So(kept[0].Slug, ShouldEqual, "eu-game")
		})
	})
}
