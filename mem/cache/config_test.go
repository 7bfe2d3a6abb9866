package cache

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	var cfg Config

	BeforeEach(func() {
		cfg = MakeBuilder().Config()
	})

	It("should have the reference defaults", func() {
		Expect(cfg).To(Equal(Config{
			NumSets:            1024,
			BlockSize:          32,
			Associativity:      2,
			ReplacementPolicy:  LRU,
			WritePolicy:        WriteBack,
			CacheAccessCycles:  1,
			MemoryAccessCycles: 100,
		}))
		Expect(cfg.Validate()).To(Succeed())
	})

	It("should derive field widths", func() {
		Expect(cfg.OffsetBits()).To(Equal(5))
		Expect(cfg.IndexBits()).To(Equal(10))
		Expect(cfg.TotalSize()).To(Equal(uint64(64 * 1024)))
	})

	DescribeTable("invalid configurations",
		func(mutate func(*Config), field string) {
			mutate(&cfg)

			err := cfg.Validate()

			var cfgErr *ConfigError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(cfgErr.Field).To(Equal(field))
		},
		Entry("zero sets", func(c *Config) { c.NumSets = 0 }, "num-sets"),
		Entry("non-power-of-two sets",
			func(c *Config) { c.NumSets = 48 }, "num-sets"),
		Entry("zero block size",
			func(c *Config) { c.BlockSize = 0 }, "block-size"),
		Entry("non-power-of-two block size",
			func(c *Config) { c.BlockSize = 24 }, "block-size"),
		Entry("zero associativity",
			func(c *Config) { c.Associativity = 0 }, "associativity"),
		Entry("unknown replacement",
			func(c *Config) { c.ReplacementPolicy = 9 }, "replacement"),
		Entry("unknown write policy",
			func(c *Config) { c.WritePolicy = 9 }, "write-policy"),
	)

	It("should accept any associativity", func() {
		cfg.Associativity = 3

		Expect(cfg.Validate()).To(Succeed())
	})

	It("should describe the error", func() {
		cfg.BlockSize = 24

		Expect(cfg.Validate()).To(MatchError(
			"invalid cache config: block-size = 24 must be a power of two"))
	})

	DescribeTable("parsing replacement policies",
		func(name string, expected ReplacementPolicy) {
			p, err := ParseReplacementPolicy(name)

			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal(expected))
			Expect(p.String()).To(BeElementOf("lru", "random"))
		},
		Entry("lru", "lru", LRU),
		Entry("upper case", "LRU", LRU),
		Entry("random", "random", Random),
	)

	DescribeTable("parsing write policies",
		func(name string, expected WritePolicy) {
			p, err := ParseWritePolicy(name)

			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal(expected))
		},
		Entry("writeback", "writeback", WriteBack),
		Entry("write-back", "write-back", WriteBack),
		Entry("wb", "WB", WriteBack),
		Entry("writethrough", "writethrough", WriteThrough),
		Entry("wt", "wt", WriteThrough),
	)

	It("should reject unknown policy names", func() {
		_, err := ParseReplacementPolicy("fifo")
		Expect(err).To(BeAssignableToTypeOf(&ConfigError{}))

		_, err = ParseWritePolicy("writearound")
		Expect(err).To(BeAssignableToTypeOf(&ConfigError{}))
	})
})
