package config_test

import (
	"runtime"
	"testing"

	"github.com/okian/doccheck/internal/config"
	model "github.com/okian/doccheck/internal/domain/model"
	"github.com/okian/doccheck/internal/domain/normalize"
	"github.com/okian/doccheck/internal/domain/rules"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.MaxDocumentsPerPerson, convey.ShouldEqual, 3)
			convey.So(cfg.GroupPrefixLen, convey.ShouldEqual, 4)
			convey.So(cfg.NameThreshold, convey.ShouldEqual, 85)
			convey.So(cfg.FatherNameThreshold, convey.ShouldEqual, 85)
			convey.So(cfg.AddressThreshold, convey.ShouldEqual, 80)
			convey.So(cfg.Topology, convey.ShouldEqual, "star")
			convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.Extractor, convey.ShouldEqual, config.ExtractorLLM)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the vocabulary is the default one", func() {
			convey.So(cfg.Vocabulary(), convey.ShouldResemble, model.DefaultVocabulary())
		})

		convey.Convey("Then the rules are the defaults built from thresholds", func() {
			cfg.AddressThreshold = 70
			rs := cfg.Rules()
			convey.So(len(rs), convey.ShouldEqual, 7)
			convey.So(rs[2].Name, convey.ShouldEqual, rules.RuleAddressMatch)
			convey.So(rs[2].Threshold, convey.ShouldEqual, 70)
		})

		convey.Convey("Then normalizer overrides are parsed", func() {
			cfg.Normalizers = map[string]string{"Employee ID": "upper"}
			kinds, err := cfg.Kinds()
			convey.So(err, convey.ShouldBeNil)
			convey.So(kinds[model.EmployeeID], convey.ShouldEqual, normalize.KindUpper)

			cfg.Normalizers = map[string]string{"Employee ID": "rot13"}
			convey.So(cfg.Validate(), convey.ShouldWrap, config.ErrInvalidConfig)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid configurations", t, func() {
		cases := map[string]func(c *config.Config){
			"threshold above 100": func(c *config.Config) { c.NameThreshold = 101 },
			"negative threshold":  func(c *config.Config) { c.AddressThreshold = -1 },
			"zero cap":            func(c *config.Config) { c.MaxDocumentsPerPerson = 0 },
			"zero prefix":         func(c *config.Config) { c.GroupPrefixLen = 0 },
			"unknown topology":    func(c *config.Config) { c.Topology = "ring" },
			"unknown scorer":      func(c *config.Config) { c.FuzzyScorer = "jaro" },
			"unknown store":       func(c *config.Config) { c.Store = "redis" },
			"sqlite without path": func(c *config.Config) { c.Store = config.StoreSQLite; c.SQLitePath = "" },
			"unknown extractor":   func(c *config.Config) { c.Extractor = "magic" },
			"empty vocabulary":    func(c *config.Config) { c.Fields = nil },
			"rule outside vocab": func(c *config.Config) {
				c.Fields = []string{"Full Name"}
			},
			"bad rule format": func(c *config.Config) {
				c.RuleList = []rules.Rule{{Name: "x", Field: model.PANNumber, Kind: rules.KindFormat, Format: "ssn"}}
			},
		}
		for name, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
			_ = name
		}
	})
}
