package knowledge

// SeedDefaults populates the store with the introductory dark web / dark
// matter passages and saves it. Useful for first-run demos and the query
// CLI's --seed flag.
func SeedDefaults(store *Store) error {
	store.AddDocument(
		"Dark Web is part of the internet not indexed by standard search engines, "+
			"accessible only through specific protocols like Tor. It represents invisible "+
			"but existing parts of the information world.",
		map[string]any{"source": "README.md", "topic": "dark_web_intro"},
	)

	store.AddDocument(
		"Dark Matter is invisible and cannot be directly observed, but can be confirmed "+
			"through gravitational effects like galaxy rotation curves and gravitational lensing. "+
			"Similarly, the dark web cannot be directly 'seen' but we can know it exists through "+
			"indirect evidence.",
		map[string]any{"source": "README.md", "topic": "dark_matter_analogy"},
	)

	store.AddDocument(
		"Dark Energy drives the accelerated expansion of the universe. In metaphor to the "+
			"network world, the dark web acts as a 'driving force' that pushes human information "+
			"exchange and economic activities toward privacy and decentralization.",
		map[string]any{"source": "README.md", "topic": "dark_energy_analogy"},
	)

	store.AddDocument(
		"The Dark Sector in physics refers to a hypothetical world composed of dark matter, "+
			"dark energy, or other unknown particles that exist in parallel with the visible "+
			"matter world of the Standard Model. The dark web is like the 'dark sector of the "+
			"information world' with its own rules, currencies (Bitcoin, Monero), communities, "+
			"and markets.",
		map[string]any{"source": "README.md", "topic": "dark_sector"},
	)

	return store.Save()
}
