package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/forfeit/internal/catalog"
	"github.com/okian/forfeit/internal/domain/challenge"
	. "github.com/smartystreets/goconvey/convey"
)

const sample = `
challenges:
  - id: web-1
    name: Cookie Jar
    category: web
    type: incorrect_penalty
    value: 100
    penalty: 10
    cumulative_cap: 25
    flags:
      - content: flag{cookies}
  - id: rev-1
    name: Crackme
    category: rev
    value: 200
    flags:
      - type: regex
        content: 'flag\{[0-9]+\}'
        case_insensitive: true
`

func TestParse(t *testing.T) {
	Convey("Given a valid catalog", t, func() {
		got, err := catalog.Parse([]byte(sample))

		Convey("Then every challenge is decoded and normalized", func() {
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, 2)
			So(got[0].Type, ShouldEqual, challenge.TypeIncorrectPenalty)
			So(got[0].CumulativeCap, ShouldEqual, 25)
			So(got[0].Flags[0].Kind, ShouldEqual, challenge.FlagStatic)
			So(got[1].Type, ShouldEqual, challenge.TypeStandard)
			So(got[1].State, ShouldEqual, challenge.StateVisible)
			So(got[1].Flags[0].CaseInsensitive, ShouldBeTrue)
		})
	})

	Convey("Given an empty document", t, func() {
		got, err := catalog.Parse(nil)

		Convey("Then it yields no challenges", func() {
			So(err, ShouldBeNil)
			So(got, ShouldBeEmpty)
		})
	})

	bad := []struct {
		name string
		doc  string
	}{
		{"an unknown key", "challenges:\n  - id: a\n    name: A\n    bonus: 3\n    flags: [{content: x}]\n"},
		{"a negative penalty", "challenges:\n  - id: a\n    name: A\n    penalty: -1\n    flags: [{content: x}]\n"},
		{"a duplicate id", "challenges:\n  - {id: a, name: A, flags: [{content: x}]}\n  - {id: a, name: B, flags: [{content: y}]}\n"},
		{"malformed yaml", "challenges: [\n"},
	}
	for _, tc := range bad {
		Convey("Given a catalog with "+tc.name, t, func() {
			_, err := catalog.Parse([]byte(tc.doc))

			Convey("Then it is rejected", func() {
				So(errors.Is(err, catalog.ErrInvalidCatalog), ShouldBeTrue)
			})
		})
	}
}

func TestLoad(t *testing.T) {
	Convey("Given a catalog file", t, func() {
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		So(os.WriteFile(path, []byte(sample), 0o600), ShouldBeNil)

		Convey("Then Load reads it", func() {
			got, err := catalog.Load(path)
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, 2)
		})
	})

	Convey("Given a missing file", t, func() {
		_, err := catalog.Load(filepath.Join(t.TempDir(), "missing.yaml"))

		Convey("Then Load fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}
