// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package threshold

// Vocabularies are matched as lowercase substrings of each keyword, so stems
// ("anxi", "pens") cover inflections in English and Portuguese.

var emotionalTerms = []string{
	"emotion", "feel", "love", "fear", "anxi", "grief", "sad", "joy", "anger", "angry",
	"hope", "lonel", "happ", "hurt", "shame", "guilt", "worr", "cry",
	"emoç", "emoc", "sentiment", "amor", "medo", "ansi", "tristeza", "triste", "alegria",
	"raiva", "saudade", "luto", "solidão", "culpa", "vergonha", "chor", "feliz",
}

var cognitiveTerms = []string{
	"think", "thought", "reason", "logic", "analy", "memory", "learn", "idea", "plan",
	"decision", "decide", "problem", "solve", "understand", "strateg", "knowledge",
	"pens", "razão", "lógic", "anális", "memória", "aprend", "ideia", "plano",
	"decis", "problema", "resolver", "entend", "estratég", "conhecimento",
}

var abstractTerms = []string{
	"soul", "meaning", "existence", "exist", "spirit", "truth", "freedom", "conscious",
	"essence", "purpose", "infinit", "eternal", "self", "identity", "beauty",
	"alma", "sentido", "existência", "espírit", "verdade", "liberdade", "consciência",
	"essência", "propósito", "eterno", "identidade", "beleza",
}

var associativeTerms = []string{
	"like", "similar", "related", "remind", "connect", "pattern", "link", "associat",
	"analog", "metaphor", "resembl",
	"parecido", "semelhan", "relacionad", "lembra", "conex", "padrão", "ligação",
	"associa", "analogia", "metáfora",
}

var highIntensityTerms = []string{
	"desperat", "devastat", "terrif", "furious", "heartbroken", "panic", "trauma",
	"grief", "rage", "hopeless",
	"desesper", "devastad", "pavor", "furios", "pânico", "trauma", "luto", "ódio",
}

var mediumIntensityTerms = []string{
	"worried", "anxious", "sad", "upset", "nervous", "stress", "frustrat", "lonely",
	"preocupad", "ansios", "triste", "chatead", "nervos", "estress", "frustrad", "sozinh",
}
