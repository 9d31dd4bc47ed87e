package morph

import (
	"math/rand"
	"testing"
)

func BenchmarkNormalize(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Normalize("وَالمُدَرِّسُونَ يَكْتُبُونَ الدُّرُوسَ", false)
	}
}

func BenchmarkClassify(b *testing.B) {
	roots := []string{"كتب", "قال", "مدّ", "قرأ", "وعد", "رمى"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Classify(roots[i%len(roots)])
	}
}

func BenchmarkIndexInsert(b *testing.B) {
	roots := randomRoots(rand.New(rand.NewSource(1)), 10_000)
	ix := NewIndex(nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ix.Insert(roots[i%len(roots)])
	}
}

func BenchmarkGenerateWord_Cached(b *testing.B) {
	e := newTestEngine(b, DefaultConfig())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.GenerateWord("كتب", "فاعل")
	}
}

func BenchmarkGenerateWord_NoCache(b *testing.B) {
	e := newTestEngine(b, Config{})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.GenerateWord("كتب", "فاعل")
	}
}

func BenchmarkValidateWord_AllRoots(b *testing.B) {
	e := newTestEngine(b, DefaultConfig())
	e.LoadRoots(randomRoots(rand.New(rand.NewSource(2)), 500))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.ValidateWord("مكتوب", "")
	}
}
