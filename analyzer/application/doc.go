// Package application contém o núcleo do dispatcher: o worker que multiplexa submissões,
// ticks do pacer e shutdown, os tiers de prioridade e as chamadas em voo.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Todo o estado (tiers, pacer) pertence à goroutine de Dispatcher.Run; as outras
// goroutines só falam com ela por channels.
package application
