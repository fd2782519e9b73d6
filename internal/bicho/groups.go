// Package bicho reúne as primitivas do jogo do bicho: grupos, animais e
// decomposições de milhares usadas na apuração.
package bicho

import "fmt"

// Animal é um dos 25 bichos; o ID coincide com o grupo.
type Animal struct {
	ID    int
	Group int
	Name  string
}

// Animals na ordem oficial dos grupos 1..25.
var Animals = [25]Animal{
	{1, 1, "Avestruz"}, {2, 2, "Águia"}, {3, 3, "Burro"}, {4, 4, "Borboleta"}, {5, 5, "Cachorro"},
	{6, 6, "Cabra"}, {7, 7, "Carneiro"}, {8, 8, "Camelo"}, {9, 9, "Cobra"}, {10, 10, "Coelho"},
	{11, 11, "Cavalo"}, {12, 12, "Elefante"}, {13, 13, "Galo"}, {14, 14, "Gato"}, {15, 15, "Jacaré"},
	{16, 16, "Leão"}, {17, 17, "Macaco"}, {18, 18, "Porco"}, {19, 19, "Pavão"}, {20, 20, "Peru"},
	{21, 21, "Touro"}, {22, 22, "Tigre"}, {23, 23, "Urso"}, {24, 24, "Veado"}, {25, 25, "Vaca"},
}

// AnimalByID devolve o bicho pelo id (1..25).
func AnimalByID(id int) (Animal, bool) {
	if id < 1 || id > len(Animals) {
		return Animal{}, false
	}
	return Animals[id-1], true
}

// GroupOfDezena converte uma dezena 00..99 no grupo 1..25; 00 pertence ao grupo 25.
func GroupOfDezena(d int) int {
	d = ((d % 100) + 100) % 100
	if d == 0 {
		return 25
	}
	return (d-1)/4 + 1
}

// GroupOf deriva o grupo a partir dos dois últimos dígitos do número.
func GroupOf(number string) int {
	return GroupOfDezena(lastTwo(number))
}

// DezenasOfGroup lista as 4 dezenas de um grupo; o grupo 25 é 97, 98, 99, 00.
func DezenasOfGroup(g int) ([]int, error) {
	if g < 1 || g > 25 {
		return nil, fmt.Errorf("invalid group %d", g)
	}
	if g == 25 {
		return []int{97, 98, 99, 0}, nil
	}
	start := (g-1)*4 + 1
	return []int{start, start + 1, start + 2, start + 3}, nil
}

func lastTwo(number string) int {
	n := 0
	digits := 0
	for i := len(number) - 1; i >= 0 && digits < 2; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			continue
		}
		if digits == 0 {
			n = int(c - '0')
		} else {
			n += int(c-'0') * 10
		}
		digits++
	}
	return n
}

// AnimalName devolve o nome do bicho do grupo, ou "" fora de 1..25.
func AnimalName(group int) string {
	a, ok := AnimalByID(group)
	if !ok {
		return ""
	}
	return a.Name
}
