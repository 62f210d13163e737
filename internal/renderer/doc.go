// Package renderer — навигация по многошаговой форме.
//
// Session хранит значения формы и стек истории шагов. Все решения
// (видимые шаги, поля, переходы, циклы) принимает пакет logic и
// пересчитывает на каждом вызове:
//
//	Next:     проверка текущего шага → jumpToStep (если цель видима)
//	          → следующий видимый шаг → отправка, если шагов больше нет
//	Previous: снимает вершину стека истории
//	Submit:   только с последнего видимого шага
//
// Resume восстанавливает сессию из истории, присланной клиентом, поэтому
// HTTP API работает без серверных сессий.
package renderer
