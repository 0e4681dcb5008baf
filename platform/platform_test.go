package platform

import (
	"testing"

	"github.com/romsan-app/romsan/filesystem"
	"github.com/romsan-app/romsan/source"
	"github.com/romsan-app/romsan/where"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Use in-memory filesystem for tests to avoid creating real directories
	filesystem.SetMemMapFs()
}

func TestParseMapping(t *testing.T) {
	Convey("ParseMapping", t, func() {
		Convey("Should accept string and list values", func() {
			mapping, err := ParseMapping([]byte(`{"mapping": {"nes": "NES", "snes": ["SNES", "SFC"]}}`))
			So(err, ShouldBeNil)
			So(mapping["nes"], ShouldResemble, []string{"NES"})
			So(mapping["snes"], ShouldResemble, []string{"SNES", "SFC"})
		})

		Convey("Should reject a document without a mapping object", func() {
			_, err := ParseMapping([]byte(`{"platforms": {}}`))
			So(err, ShouldNotBeNil)
		})

		Convey("Should reject malformed JSON", func() {
			_, err := ParseMapping([]byte(`{`))
			So(err, ShouldNotBeNil)
		})

		Convey("Should reject non-string mapping values", func() {
			_, err := ParseMapping([]byte(`{"mapping": {"nes": 42}}`))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestResolve(t *testing.T) {
	Convey("Mapping.Resolve", t, func() {
		mapping := Mapping{
			"nes":  {"NES", "Famicom"},
			"snes": {"SNES"},
		}

		Convey("Should resolve case-insensitively", func() {
			mother, ok := mapping.Resolve("famicom")
			So(ok, ShouldBeTrue)
			So(mother, ShouldEqual, "nes")
		})

		Convey("Should report unknown codes", func() {
			_, ok := mapping.Resolve("genesis")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestCatalog(t *testing.T) {
	Convey("Catalog", t, func() {
		fs := filesystem.API()

		So(fs.WriteFile(where.Catalog(), []byte(`{
			"nes": {
				"display_name": "Nintendo Entertainment System",
				"manufacturer": "Nintendo",
				"image_path": "platforms/nes.png",
				"description": "8-bit home console"
			}
		}`), 0644), ShouldBeNil)

		installPath := "/sources/demo"
		So(fs.MkdirAll(installPath, 0755), ShouldBeNil)
		So(fs.WriteFile(installPath+"/mapping.json", []byte(`{"mapping": {"nes": "NES-1985"}}`), 0644), ShouldBeNil)

		catalog := NewCatalog()

		Convey("Enrich replaces presentation with canonical data", func() {
			enriched := catalog.Enrich(source.Platform{Code: "NES-1985", Name: "nes (demo)"}, "demo", installPath)

			So(enriched.Code, ShouldEqual, "nes")
			So(enriched.Name, ShouldEqual, "Nintendo Entertainment System")
			So(enriched.Manufacturer, ShouldEqual, "Nintendo")
		})

		Convey("Enrich keeps original values for unmapped codes", func() {
			original := source.Platform{Code: "mystery", Name: "Mystery Console"}
			enriched := catalog.Enrich(original, "demo", installPath)

			So(enriched, ShouldResemble, original)
		})

		Convey("Clear drops memoized tables", func() {
			_, err := catalog.LoadCanonicalMetadata()
			So(err, ShouldBeNil)

			catalog.Clear()

			canonical, err := catalog.LoadCanonicalMetadata()
			So(err, ShouldBeNil)
			So(canonical, ShouldContainKey, "nes")
		})
	})
}
