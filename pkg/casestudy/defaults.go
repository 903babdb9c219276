package casestudy

// DefaultStudies is the catalog used when no catalog file is configured.
func DefaultStudies() []CaseStudy {
	return []CaseStudy{
		{
			ID:       "cs-fin-core-banking",
			Title:    "Core banking platform modernization",
			Industry: "Financial Services",
			Keywords: []string{"legacy", "mainframe", "compliance", "modernization", "core banking"},
			Summary:  "Replaced a mainframe ledger with cloud-native services under regulator oversight.",
		},
		{
			ID:       "cs-health-ehr",
			Title:    "Hospital EHR consolidation",
			Industry: "Healthcare",
			Keywords: []string{"patient", "records", "hipaa", "integration", "interoperability"},
			Summary:  "Merged four electronic health record systems into one platform.",
		},
		{
			ID:       "cs-retail-omni",
			Title:    "Omnichannel retail commerce",
			Industry: "Retail",
			Keywords: []string{"ecommerce", "inventory", "checkout", "peak", "scalability"},
			Summary:  "Unified store and online inventory ahead of peak season.",
		},
		{
			ID:       "cs-tech-cloud",
			Title:    "SaaS provider cloud migration",
			Industry: "Technology",
			Keywords: []string{"cloud", "migration", "uptime", "sla", "downtime", "availability"},
			Summary:  "Moved a multi-tenant SaaS platform to the public cloud with 99.95% availability.",
		},
		{
			ID:       "cs-mfg-iot",
			Title:    "Smart factory telemetry",
			Industry: "Manufacturing",
			Keywords: []string{"iot", "telemetry", "predictive", "maintenance", "operations"},
			Summary:  "Rolled out sensor telemetry and predictive maintenance across three plants.",
		},
	}
}

// DefaultCatalog builds a catalog from DefaultStudies.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultStudies())
	if err != nil {
		panic(err)
	}
	return c
}
