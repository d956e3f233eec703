package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "exame cardiaco", Fold("Exame Cardíaco"))
	assert.Equal(t, "sao joao", Fold("SÃO JOÃO"))
	assert.Equal(t, "", Fold(""))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains("cardiaco", "Ecocardiograma", "Exame Cardíaco"))
	assert.True(t, Contains("ÁGUA", "agua mineral"))
	assert.False(t, Contains("raio", "Tomografia"))
	assert.False(t, Contains("   ", "anything"))
}

func TestReplaceUserName(t *testing.T) {
	cases := []struct {
		name    string
		content string
		user    string
		want    string
	}{
		{"accented intro", "Olá, meu nome é [nome], tudo bem?", "Ana", "Olá, meu nome é Ana, tudo bem?"},
		{"unaccented intro", "Meu nome e [nome].", "Ana", "meu nome é Ana."},
		{"me chamo", "Bom dia, me chamo [NOME].", "Rui", "Bom dia, me chamo Rui."},
		{"sou", "Aqui é a recepção, sou [nome]", "Bia", "Aqui é a recepção, sou Bia"},
		{"bare placeholder", "Atendente: [Nome] / [nome]", "Lia", "Atendente: Lia / Lia"},
		{"blank user", "meu nome é [nome]", "  ", "meu nome é [nome]"},
		{"no placeholder", "Bom dia!", "Ana", "Bom dia!"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ReplaceUserName(tc.content, tc.user))
		})
	}
}
